package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jkaninda/kituo/internal/observability"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client covering the methods the
// gateway needs. All calls decode the standard {ok, result, description}
// envelope and surface description on ok=false.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.MetricsCollector // nil = metrics disabled
}

// NewClient creates a Telegram Bot API client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.MetricsCollector) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// apiResponse is the standard Telegram Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

// call invokes a Bot API method and unmarshals the result into out (if non-nil).
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	start := time.Now()
	status := "transport_error"
	defer func() {
		if c.metrics != nil {
			c.metrics.APICallsTotal.WithLabelValues(method, status).Inc()
			c.metrics.APICallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		}
	}()

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling %s params: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	var envelope apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUpdateSize)).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !envelope.OK {
		status = "api_error"
		return fmt.Errorf("telegram %s: %s", method, envelope.Description)
	}

	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

type sendMessageParams struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendMessage sends a text message and returns the message as confirmed by
// the API, so callers can log or correlate the delivered message ID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string, markup *InlineKeyboardMarkup) (*Message, error) {
	var sent Message
	err := c.call(ctx, "sendMessage", sendMessageParams{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	}, &sent)
	if err != nil {
		return nil, err
	}
	return &sent, nil
}

// AnswerCallbackQuery acknowledges an inline button press so the client
// stops showing the progress indicator. Text is optional.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	}, nil)
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": timeoutSeconds,
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// SetWebhook registers the webhook URL with Telegram. Only message and
// callback_query updates are requested; the gateway handles nothing else.
func (c *Client) SetWebhook(ctx context.Context, url string, dropPending bool) error {
	return c.call(ctx, "setWebhook", map[string]any{
		"url":                  url,
		"allowed_updates":      []string{"message", "callback_query"},
		"drop_pending_updates": dropPending,
	}, nil)
}

// DeleteWebhook removes the registered webhook.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	return c.call(ctx, "deleteWebhook", map[string]any{
		"drop_pending_updates": dropPending,
	}, nil)
}

// GetWebhookInfo returns the current webhook registration state.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.call(ctx, "getWebhookInfo", map[string]any{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetMyCommands publishes the bot command menu shown by Telegram clients.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	return c.call(ctx, "setMyCommands", map[string]any{
		"commands": commands,
	}, nil)
}

// --- Wire types ---

// Update represents a Telegram Bot API update.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message represents a Telegram message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// CallbackQuery represents an inline keyboard button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// User represents a Telegram user.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// InlineKeyboardMarkup represents inline keyboard buttons.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton represents a single inline keyboard button.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// WebhookInfo is the result of getWebhookInfo.
type WebhookInfo struct {
	URL                string `json:"url"`
	PendingUpdateCount int    `json:"pending_update_count"`
	LastErrorDate      int64  `json:"last_error_date,omitempty"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// BotCommand is one entry in the bot command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}
