package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jkaninda/kituo/internal/bot"
)

func TestWebhookEndpoint(t *testing.T) {
	got := WebhookEndpoint("https://bot.example.com", "token-a")
	if !strings.HasPrefix(got, "https://bot.example.com/") {
		t.Errorf("endpoint = %q, want base URL prefix", got)
	}

	// Deterministic per token; trailing slash on base must not double up.
	again := WebhookEndpoint("https://bot.example.com/", "token-a")
	if got != again {
		t.Errorf("endpoint not stable across trailing slash: %q vs %q", got, again)
	}
	other := WebhookEndpoint("https://bot.example.com", "token-b")
	if got == other {
		t.Error("different tokens must yield different secret paths")
	}

	secret := strings.TrimPrefix(got, "https://bot.example.com/")
	if len(secret) != 32 {
		t.Errorf("secret path length = %d, want 32 hex chars", len(secret))
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int // expected chunk count
	}{
		{"short text single chunk", "hello", 100, 1},
		{"exact fit", strings.Repeat("a", 100), 100, 1},
		{"split on paragraph", strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60), 100, 2},
		{"split on line", strings.Repeat("a", 60) + "\n" + strings.Repeat("b", 60), 100, 2},
		{"split on word", strings.Repeat("a", 60) + " " + strings.Repeat("b", 60), 100, 2},
		{"hard cut without boundaries", strings.Repeat("a", 250), 100, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chunks := splitMessage(tc.text, tc.maxLen)
			if len(chunks) != tc.want {
				t.Fatalf("chunks = %d, want %d", len(chunks), tc.want)
			}
			var total int
			for i, c := range chunks {
				if len(c) > tc.maxLen {
					t.Errorf("chunk %d length = %d, exceeds %d", i, len(c), tc.maxLen)
				}
				total += len(c)
			}
			if total != len(tc.text) {
				t.Errorf("reassembled length = %d, want %d (no content lost)", total, len(tc.text))
			}
		})
	}
}

func TestToMarkup(t *testing.T) {
	if toMarkup(nil) != nil {
		t.Error("no buttons must map to nil markup, not an empty keyboard")
	}

	markup := toMarkup([][]bot.Button{
		{{Label: "A", Data: "a"}, {Label: "B", Data: "b"}},
		{{Label: "C", Data: "c"}},
	})
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(markup.InlineKeyboard))
	}
	if markup.InlineKeyboard[0][1].CallbackData != "b" {
		t.Errorf("button data = %q, want b", markup.InlineKeyboard[0][1].CallbackData)
	}
}

func TestCommandIntent(t *testing.T) {
	tests := []struct {
		text, want string
	}{
		{"/start", "start"},
		{"/menu", "menu"},
		{"/requests", "requests"},
		{"/stats", "stats"},
		{"/help", "help"},
		{"/frobnicate", "unknown"},
		{"hello", "unknown"},
	}
	for _, tc := range tests {
		if got := commandIntent(tc.text); got != tc.want {
			t.Errorf("commandIntent(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestChatAllowed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	open := NewGateway(Config{BotToken: "t"}, nil, nil, logger)
	if !open.chatAllowed(123) {
		t.Error("empty allowlist must allow all chats")
	}

	restricted := NewGateway(Config{BotToken: "t", AllowedChats: []int64{1, 2}}, nil, nil, logger)
	if !restricted.chatAllowed(1) || restricted.chatAllowed(3) {
		t.Error("allowlist must admit listed chats only")
	}
}

func TestClientSendMessage(t *testing.T) {
	var gotPath string
	var gotParams sendMessageParams

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotParams); err != nil {
			t.Errorf("decoding params: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 99, "chat": map[string]any{"id": 10}},
		})
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient("tok", 5*time.Second, logger, nil)
	client.baseURL = srv.URL

	sent, err := client.SendMessage(context.Background(), 10, "hello", "Markdown", &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{{Text: "A", CallbackData: "a"}}},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if gotPath != "/bottok/sendMessage" {
		t.Errorf("path = %q, want /bottok/sendMessage", gotPath)
	}
	if gotParams.ChatID != 10 || gotParams.Text != "hello" || gotParams.ParseMode != "Markdown" {
		t.Errorf("params = %+v", gotParams)
	}
	if gotParams.ReplyMarkup == nil || gotParams.ReplyMarkup.InlineKeyboard[0][0].CallbackData != "a" {
		t.Errorf("reply markup = %+v", gotParams.ReplyMarkup)
	}
	if sent.MessageID != 99 {
		t.Errorf("sent message ID = %d, want 99 (API result surfaced)", sent.MessageID)
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient("tok", 5*time.Second, logger, nil)
	client.baseURL = srv.URL

	_, err := client.SendMessage(context.Background(), 10, "hello", "", nil)
	if err == nil {
		t.Fatal("ok=false must surface as an error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error = %v, want API description included", err)
	}
}

func TestToAdmin(t *testing.T) {
	admin := toAdmin(&User{ID: 5, FirstName: "Anna", LastName: "K", Username: "ak"})
	if admin.ExternalID != 5 || admin.Username != "ak" || admin.FullName() != "Anna K" {
		t.Errorf("admin = %+v", admin)
	}
}
