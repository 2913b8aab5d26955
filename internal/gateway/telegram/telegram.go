// Package telegram implements the Telegram gateway for the call-center admin
// bot using long polling or webhook mode.
//
// Security:
//   - Bot token from TELEGRAM_BOT_TOKEN env var, never logged
//   - Webhook path derived from bot token hash (prevents unauthorized POSTs)
//   - Optional chat allowlist (empty = allow all chats)
//   - Per-chat rate limiting
//
// The gateway only normalizes transport: updates are decoded into commands
// and button presses, handed to the router, and the router's reply is sent
// back. All business decisions live behind the router.
package telegram

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jkaninda/okapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/kituo/internal/bot"
	"github.com/jkaninda/kituo/internal/observability"
	"github.com/jkaninda/kituo/internal/ratelimit"
)

const (
	defaultPollTimeout = 30
	maxUpdateSize      = 256 << 10 // 256 KB
	maxMessageLen      = 4096
	safeMaxMessageLen  = 4000 // Safe margin for unicode/encoding overhead.
)

// Config configures the Telegram gateway.
type Config struct {
	BotToken     string  // From TELEGRAM_BOT_TOKEN env var.
	WebhookURL   string  // If set, use webhook mode. If empty, use long polling.
	ListenAddr   string  // For webhook mode.
	AllowedChats []int64 // Chat IDs allowed to interact. Empty = allow all.
	PollTimeout  int     // Long poll timeout in seconds. 0 = 30s default.

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics (webhook mode only).
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz (webhook mode only).
	Metrics         *observability.MetricsCollector // Metrics collector. nil = metrics disabled.
	Tracer          trace.Tracer                    // OTel tracer. nil = tracing disabled.
}

// Gateway is the Telegram gateway.
type Gateway struct {
	config  Config
	router  *bot.Router
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	client  *Client
	app     *okapi.Okapi // nil in polling mode
	server  *http.Server // nil in polling mode
	cancel  context.CancelFunc
	allowed map[int64]bool // pre-computed allowlist; empty = allow all
}

// NewGateway creates a Telegram gateway.
func NewGateway(cfg Config, router *bot.Router, rl *ratelimit.Limiter, logger *slog.Logger) *Gateway {
	allowed := make(map[int64]bool, len(cfg.AllowedChats))
	for _, id := range cfg.AllowedChats {
		allowed[id] = true
	}
	return &Gateway{
		config:  cfg,
		router:  router,
		limiter: rl,
		logger:  logger,
		client:  NewClient(cfg.BotToken, time.Duration(cfg.pollTimeout()+10)*time.Second, logger, cfg.Metrics),
		allowed: allowed,
	}
}

// Client returns the underlying Bot API client.
func (g *Gateway) Client() *Client {
	return g.client
}

// Start launches the gateway in webhook or long-polling mode and blocks.
func (g *Gateway) Start(ctx context.Context) error {
	ctx, g.cancel = context.WithCancel(ctx)

	if g.config.WebhookURL != "" {
		return g.startWebhook(ctx)
	}
	return g.startPolling(ctx)
}

// Stop gracefully shuts down the gateway.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}
	if g.server != nil {
		g.logger.Info("telegram gateway stopping webhook server")
		return g.app.Shutdown(g.server)
	}
	g.logger.Info("telegram gateway stopping poller")
	return nil
}

// --- Long Polling ---

func (g *Gateway) startPolling(ctx context.Context) error {
	g.logger.Info("telegram gateway starting long polling",
		slog.Int("timeout", g.config.pollTimeout()),
	)

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		updates, err := g.client.GetUpdates(ctx, offset, g.config.pollTimeout())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			g.logger.Error("telegram getUpdates failed", slog.String("error", err.Error()))
			time.Sleep(2 * time.Second)
			continue
		}

		for _, u := range updates {
			g.processUpdate(ctx, &u)
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
		}
	}
}

// --- Webhook ---

func (g *Gateway) startWebhook(ctx context.Context) error {
	// Use a hash of the bot token as the webhook path to prevent unauthorized POSTs.
	secretPath := "/" + webhookSecret(g.config.BotToken)

	g.app = okapi.New()
	g.app.Post(secretPath, g.handleWebhookUpdate)

	// Observability endpoints (unauthenticated).
	g.app.Get("/healthz", g.handleLiveness)
	g.app.Get("/readyz", g.handleReadiness)
	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.app.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("telegram gateway starting webhook",
		slog.String("addr", g.config.ListenAddr),
	)

	err := g.app.StartServer(g.server)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (g *Gateway) handleWebhookUpdate(c *okapi.Context) error {
	var update Update
	if err := c.Bind(&update); err != nil {
		return c.AbortBadRequest("bad request")
	}

	g.processUpdate(c.Context(), &update)
	return c.OK(map[string]bool{"ok": true})
}

func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(observability.HealthStatus{Status: "ok"})
}

func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(observability.HealthStatus{Status: "ok"})
	}

	status := g.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// webhookSecret derives the secret webhook path component from the bot token.
func webhookSecret(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:16]) // 32-char hex path
}

// WebhookEndpoint joins the public base URL and the token-derived secret path.
// Both the serving gateway and the registration command derive the same URL.
func WebhookEndpoint(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/" + webhookSecret(token)
}

// --- Update Processing ---

func (g *Gateway) processUpdate(ctx context.Context, update *Update) {
	if g.config.Metrics != nil {
		g.config.Metrics.ActiveUpdates.Inc()
		defer g.config.Metrics.ActiveUpdates.Dec()
	}

	if g.config.Tracer != nil {
		var span trace.Span
		ctx, span = g.config.Tracer.Start(ctx, "gateway.update")
		defer span.End()
	}

	logger := g.logger.With(slog.String("correlation_id", correlationID()))

	switch {
	case update.CallbackQuery != nil:
		g.countUpdate("callback")
		g.handleCallback(ctx, logger, update.CallbackQuery)
	case update.Message != nil:
		g.countUpdate("message")
		g.handleMessage(ctx, logger, update.Message)
	default:
		g.countUpdate("other")
	}
}

// correlationID returns a short random hex ID tying together the log lines of
// one update.
func correlationID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

func (g *Gateway) countUpdate(kind string) {
	if g.config.Metrics != nil {
		g.config.Metrics.UpdatesTotal.WithLabelValues(kind).Inc()
	}
}

func (g *Gateway) handleMessage(ctx context.Context, logger *slog.Logger, msg *Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}

	chatID := msg.Chat.ID
	if !g.chatAllowed(chatID) {
		logger.Warn("telegram chat not in allowlist", slog.Int64("chat_id", chatID))
		return
	}

	if g.limiter != nil {
		if err := g.limiter.Allow(chatID); err != nil {
			g.send(ctx, bot.Reply{ChatID: chatID, Text: "Too many requests. Please wait a moment."})
			return
		}
	}

	cmd := bot.Command{
		ChatID: chatID,
		Admin:  toAdmin(msg.From),
		Text:   strings.TrimSpace(msg.Text),
	}

	logger.Info("telegram message",
		slog.Int64("chat_id", chatID),
		slog.Int64("admin_id", cmd.Admin.ExternalID),
		slog.String("command", cmd.Text),
	)

	reply := g.router.HandleCommand(ctx, cmd)
	g.countDispatch(commandIntent(cmd.Text), g.send(ctx, reply))
}

func (g *Gateway) handleCallback(ctx context.Context, logger *slog.Logger, cb *CallbackQuery) {
	if cb.From == nil {
		return
	}

	// Acknowledge immediately so the client stops showing the spinner,
	// regardless of whether the action is recognized.
	if err := g.client.AnswerCallbackQuery(ctx, cb.ID, ""); err != nil {
		logger.Warn("answering callback failed", slog.String("error", err.Error()))
	}

	if cb.Message == nil {
		// Message too old or inaccessible; nowhere to reply to.
		return
	}

	chatID := cb.Message.Chat.ID
	if !g.chatAllowed(chatID) {
		logger.Warn("telegram chat not in allowlist", slog.Int64("chat_id", chatID))
		return
	}

	if g.limiter != nil {
		if err := g.limiter.Allow(chatID); err != nil {
			g.send(ctx, bot.Reply{ChatID: chatID, Text: "Too many requests. Please wait a moment."})
			return
		}
	}

	// Decode callback data exactly once, here at the transport boundary.
	press := bot.ButtonPress{
		ChatID: chatID,
		Admin:  toAdmin(cb.From),
		Action: bot.ParseAction(cb.Data),
		Data:   cb.Data,
	}

	logger.Info("telegram callback",
		slog.Int64("chat_id", chatID),
		slog.Int64("admin_id", press.Admin.ExternalID),
		slog.String("action", press.Action.Kind.String()),
	)

	reply := g.router.HandleButton(ctx, press)
	g.countDispatch(press.Action.Kind.String(), g.send(ctx, reply))
}

func (g *Gateway) chatAllowed(chatID int64) bool {
	return len(g.allowed) == 0 || g.allowed[chatID]
}

func (g *Gateway) countDispatch(intent string, err error) {
	if g.config.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	g.config.Metrics.DispatchTotal.WithLabelValues(intent, outcome).Inc()
}

// commandIntent maps command text to a bounded metric label.
func commandIntent(text string) string {
	switch text {
	case bot.CmdStart, bot.CmdMenu, bot.CmdRequests, bot.CmdStats, bot.CmdHelp:
		return strings.TrimPrefix(text, "/")
	default:
		return "unknown"
	}
}

func toAdmin(u *User) bot.Admin {
	return bot.Admin{
		ExternalID: u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
	}
}

// Notify sends Markdown text to a chat outside the request/reply flow.
// Used by the digest scheduler.
func (g *Gateway) Notify(ctx context.Context, chatID int64, text string) error {
	return g.send(ctx, bot.Reply{ChatID: chatID, Text: text, Markdown: true})
}

// send delivers a router reply. An empty Text is a no-op acknowledgment.
// Long texts are split into chunks; the inline keyboard rides on the last
// chunk so it stays attached to the visible end of the reply.
func (g *Gateway) send(ctx context.Context, reply bot.Reply) error {
	if reply.Text == "" {
		return nil
	}

	parseMode := ""
	if reply.Markdown {
		parseMode = "Markdown"
	}
	markup := toMarkup(reply.Buttons)

	chunks := splitMessage(reply.Text, safeMaxMessageLen)
	for i, chunk := range chunks {
		var m *InlineKeyboardMarkup
		if i == len(chunks)-1 {
			m = markup
		}
		if _, err := g.client.SendMessage(ctx, reply.ChatID, chunk, parseMode, m); err != nil {
			g.logger.Error("sending reply failed",
				slog.Int64("chat_id", reply.ChatID),
				slog.String("error", err.Error()),
			)
			return err
		}
	}
	return nil
}

func toMarkup(rows [][]bot.Button) *InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &InlineKeyboardMarkup{InlineKeyboard: make([][]InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		buttons := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, InlineKeyboardButton{Text: b.Label, CallbackData: b.Data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

func (c Config) pollTimeout() int {
	if c.PollTimeout > 0 {
		return c.PollTimeout
	}
	return defaultPollTimeout
}

// --- Message Splitting ---

// splitMessage splits text into chunks that fit within Telegram's message
// limit, preferring paragraph boundaries, then line boundaries, then word
// boundaries.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	remaining := text

	for len(remaining) > maxLen {
		candidate := remaining[:maxLen]
		splitAt := -1

		if idx := strings.LastIndex(candidate, "\n\n"); idx > 0 {
			splitAt = idx + 1 // Keep first newline in this chunk.
		}
		if splitAt < 0 {
			if idx := strings.LastIndex(candidate, "\n"); idx > 0 {
				splitAt = idx + 1
			}
		}
		if splitAt < 0 {
			if idx := strings.LastIndex(candidate, " "); idx > 0 {
				splitAt = idx + 1
			}
		}
		if splitAt < 0 {
			splitAt = maxLen
		}

		chunks = append(chunks, remaining[:splitAt])
		remaining = remaining[splitAt:]
	}

	if len(remaining) > 0 {
		chunks = append(chunks, remaining)
	}
	return chunks
}
