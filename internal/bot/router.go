// Package bot implements the command and callback router for the call-center
// admin bot. It classifies a normalized inbound event into exactly one intent
// and dispatches to the matching handler, producing a reply payload.
//
// Dispatch is total: every input yields exactly one Reply. Unknown commands
// and unrecognized button actions produce hint or no-op replies, never
// errors; store failures degrade to a well-formed failure reply.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jkaninda/kituo/internal/domain"
	"github.com/jkaninda/kituo/internal/lifecycle"
	"github.com/jkaninda/kituo/internal/storage"
)

// Command vocabulary. Exact match, case-sensitive, no arguments.
const (
	CmdStart    = "/start"
	CmdMenu     = "/menu"
	CmdRequests = "/requests"
	CmdStats    = "/stats"
	CmdHelp     = "/help"
)

// Button action tokens as carried in callback data.
const (
	TokenBlockCard     = "block_card"
	TokenBlockApp      = "block_app"
	TokenReissueCard   = "reissue_card"
	TokenViewRequests  = "view_requests"
	prefixRequest      = "request_"
	prefixComplete     = "complete_"
)

// ActionKind enumerates the closed set of button intents.
type ActionKind int

const (
	ActionUnrecognized ActionKind = iota
	ActionBlockCardForm
	ActionBlockAppForm
	ActionReissueCardForm
	ActionViewRequests
	ActionRequestDetail
	ActionCompleteRequest
)

// String returns a stable name for logs and metric labels.
func (k ActionKind) String() string {
	switch k {
	case ActionBlockCardForm:
		return "block_card_form"
	case ActionBlockAppForm:
		return "block_app_form"
	case ActionReissueCardForm:
		return "reissue_card_form"
	case ActionViewRequests:
		return "view_requests"
	case ActionRequestDetail:
		return "request_detail"
	case ActionCompleteRequest:
		return "complete_request"
	default:
		return "unrecognized"
	}
}

// Action is a button press decoded once at the transport boundary.
// Handlers operate over this tagged variant instead of re-parsing strings.
type Action struct {
	Kind      ActionKind
	RequestID int64 // Set for ActionRequestDetail and ActionCompleteRequest.
}

// ParseAction decodes callback data into an Action. Anything that does not
// match the fixed token set — including request/complete tokens with a
// malformed ID — is ActionUnrecognized.
func ParseAction(data string) Action {
	switch data {
	case TokenBlockCard:
		return Action{Kind: ActionBlockCardForm}
	case TokenBlockApp:
		return Action{Kind: ActionBlockAppForm}
	case TokenReissueCard:
		return Action{Kind: ActionReissueCardForm}
	case TokenViewRequests:
		return Action{Kind: ActionViewRequests}
	}

	if rest, ok := strings.CutPrefix(data, prefixRequest); ok {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil && id > 0 {
			return Action{Kind: ActionRequestDetail, RequestID: id}
		}
	}
	if rest, ok := strings.CutPrefix(data, prefixComplete); ok {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil && id > 0 {
			return Action{Kind: ActionCompleteRequest, RequestID: id}
		}
	}
	return Action{Kind: ActionUnrecognized}
}

// Admin identifies the sender of an inbound event.
type Admin struct {
	ExternalID int64
	Username   string
	FirstName  string
	LastName   string
}

// FullName joins the first and last name the way the intake pipeline stores it.
func (a Admin) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Command is a text command event.
type Command struct {
	ChatID int64
	Admin  Admin
	Text   string
}

// ButtonPress is a decoded inline button event.
type ButtonPress struct {
	ChatID int64
	Admin  Admin
	Action Action
	Data   string // Raw callback data, kept for logging only.
}

// Button is one inline keyboard button in a reply.
type Button struct {
	Label string
	Data  string
}

// Reply is the structured payload handed to the transport adapter. An empty
// Text means nothing should be sent (no-op acknowledgment).
type Reply struct {
	ChatID   int64
	Text     string
	Buttons  [][]Button
	Markdown bool
}

// Router maps inbound events to handlers.
type Router struct {
	store  storage.Store
	engine *lifecycle.Engine
	logger *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(store storage.Store, engine *lifecycle.Engine, logger *slog.Logger) *Router {
	return &Router{store: store, engine: engine, logger: logger}
}

// HandleCommand dispatches a text command. Exactly one reply is produced for
// any input text.
func (r *Router) HandleCommand(ctx context.Context, cmd Command) Reply {
	switch cmd.Text {
	case CmdStart:
		return r.handleStart(ctx, cmd)
	case CmdMenu:
		return mainMenuReply(cmd.ChatID)
	case CmdRequests:
		return r.handleListRequests(ctx, cmd.ChatID)
	case CmdStats:
		return r.handleStats(ctx, cmd.ChatID)
	case CmdHelp:
		return helpReply(cmd.ChatID)
	default:
		return unknownCommandReply(cmd.ChatID)
	}
}

// HandleButton dispatches a decoded button press. Exactly one reply is
// produced for any action, including unrecognized ones.
func (r *Router) HandleButton(ctx context.Context, press ButtonPress) Reply {
	switch press.Action.Kind {
	case ActionBlockCardForm:
		return blockCardFormReply(press.ChatID)
	case ActionBlockAppForm:
		return blockAppFormReply(press.ChatID)
	case ActionReissueCardForm:
		return reissueCardFormReply(press.ChatID)
	case ActionViewRequests:
		return r.handleListRequests(ctx, press.ChatID)
	case ActionRequestDetail:
		return r.handleRequestDetail(ctx, press.ChatID, press.Action.RequestID)
	case ActionCompleteRequest:
		return r.handleComplete(ctx, press)
	default:
		// Unrecognized data is acknowledged and otherwise ignored.
		r.logger.Warn("unrecognized callback data",
			slog.Int64("chat_id", press.ChatID),
			slog.String("data", press.Data),
		)
		return Reply{ChatID: press.ChatID}
	}
}

func (r *Router) handleStart(ctx context.Context, cmd Command) Reply {
	err := r.store.UpsertAdmin(ctx, cmd.Admin.ExternalID, cmd.Admin.Username, cmd.Admin.FullName())
	if err != nil {
		r.logger.Error("admin upsert failed",
			slog.Int64("admin_id", cmd.Admin.ExternalID),
			slog.String("error", err.Error()),
		)
		return storeFailureReply(cmd.ChatID)
	}
	return welcomeReply(cmd.ChatID)
}

func (r *Router) handleListRequests(ctx context.Context, chatID int64) Reply {
	summaries, err := r.engine.ListActive(ctx, lifecycle.DefaultListLimit)
	if err != nil {
		r.logger.Error("listing active requests failed", slog.String("error", err.Error()))
		return storeFailureReply(chatID)
	}
	return requestListReply(chatID, summaries)
}

func (r *Router) handleRequestDetail(ctx context.Context, chatID, requestID int64) Reply {
	detail, err := r.engine.Detail(ctx, requestID)
	if errors.Is(err, domain.ErrNotFound) {
		return requestNotFoundReply(chatID)
	}
	if err != nil {
		r.logger.Error("loading request detail failed",
			slog.Int64("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return storeFailureReply(chatID)
	}
	return requestDetailReply(chatID, detail)
}

func (r *Router) handleComplete(ctx context.Context, press ButtonPress) Reply {
	requestID := press.Action.RequestID
	err := r.engine.Complete(ctx, requestID, press.Admin.ExternalID)
	switch {
	case err == nil:
		return completedReply(press.ChatID, requestID)
	case errors.Is(err, domain.ErrNotFound):
		return requestNotFoundReply(press.ChatID)
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return alreadyCompletedReply(press.ChatID, requestID)
	default:
		r.logger.Error("completing request failed",
			slog.Int64("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return storeFailureReply(press.ChatID)
	}
}

func (r *Router) handleStats(ctx context.Context, chatID int64) Reply {
	stats, err := r.engine.Stats(ctx)
	if err != nil {
		r.logger.Error("loading statistics failed", slog.String("error", err.Error()))
		return storeFailureReply(chatID)
	}
	return statisticsReply(chatID, stats)
}
