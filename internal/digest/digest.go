// Package digest sends a scheduled summary of active service requests to
// configured chats. The schedule is a standard 5-field cron expression.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/jkaninda/kituo/internal/domain"
	"github.com/jkaninda/kituo/internal/lifecycle"
)

// Notifier delivers digest text to a chat. The Telegram gateway implements it.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Config configures the digest schedule and recipients.
type Config struct {
	CronExpression string
	ChatIDs        []int64
	Limit          int // Max requests per digest.
}

// Digest runs the scheduled active-request summary.
type Digest struct {
	config   Config
	engine   *lifecycle.Engine
	notifier Notifier
	logger   *slog.Logger
	cron     *cron.Cron
}

// New creates a Digest. Call Start to register the schedule and begin running.
func New(cfg Config, engine *lifecycle.Engine, notifier Notifier, logger *slog.Logger) *Digest {
	return &Digest{
		config:   cfg,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start validates the cron expression, registers the job, and starts the
// scheduler in the background. Returns an error on an invalid expression.
func (d *Digest) Start(ctx context.Context) error {
	_, err := d.cron.AddFunc(d.config.CronExpression, func() {
		d.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", d.config.CronExpression, err)
	}

	d.cron.Start()
	d.logger.Info("digest scheduler started",
		slog.String("schedule", d.config.CronExpression),
		slog.Int("chats", len(d.config.ChatIDs)),
	)
	return nil
}

// Stop stops the scheduler and waits for a running digest to finish.
func (d *Digest) Stop() {
	<-d.cron.Stop().Done()
	d.logger.Info("digest scheduler stopped")
}

func (d *Digest) run(ctx context.Context) {
	summaries, err := d.engine.ListActive(ctx, d.config.Limit)
	if err != nil {
		d.logger.Error("digest listing failed", slog.String("error", err.Error()))
		return
	}

	text := render(summaries)
	for _, chatID := range d.config.ChatIDs {
		if err := d.notifier.Notify(ctx, chatID, text); err != nil {
			d.logger.Error("digest delivery failed",
				slog.Int64("chat_id", chatID),
				slog.String("error", err.Error()),
			)
		}
	}

	d.logger.Info("digest sent",
		slog.Int("requests", len(summaries)),
		slog.Int("chats", len(d.config.ChatIDs)),
	)
}

// render formats the digest text. Plain list without buttons: recipients open
// the bot menu for actions.
func render(summaries []domain.RequestSummary) string {
	if len(summaries) == 0 {
		return "📋 *Daily digest*\n\nNo active requests. All clear. ✅"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Daily digest* — %d active request(s)\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(&b, "• *#%d* %s — %s priority, %s\n", s.ID, s.Type, s.Priority, s.Status)
		fmt.Fprintf(&b, "  👤 %s, 📞 %s\n", s.ClientName, s.ClientPhone)
	}
	b.WriteString("\nUse /requests in the bot to act on them.")
	return b.String()
}
