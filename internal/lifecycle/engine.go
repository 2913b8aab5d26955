// Package lifecycle implements the request lifecycle engine.
//
// State machine per request: pending → processing → completed, forward only.
// Requests enter as pending (set by the intake pipeline) and may be moved to
// processing by an external triage step; this engine performs the single
// transition it owns — {pending, processing} → completed — and guarantees
// that every completion leaves exactly one audit log entry.
//
// The engine is stateless: every operation reads and writes within one store
// transaction, so concurrent events across chats need no coordination here.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jkaninda/kituo/internal/domain"
	"github.com/jkaninda/kituo/internal/storage"
)

// DefaultListLimit caps the active-request listing.
const DefaultListLimit = 10

// Engine enforces request status transitions and priority-ordered reads.
type Engine struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates an Engine.
func New(store storage.Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Complete transitions a request to completed on behalf of an admin.
// Returns domain.ErrNotFound if the request does not exist and
// domain.ErrAlreadyCompleted if the transition was already performed; both
// are expected outcomes, not failures. The store guarantees the status
// update and the audit entry commit atomically.
func (e *Engine) Complete(ctx context.Context, requestID, adminExternalID int64) error {
	err := e.store.CompleteRequest(ctx, requestID, adminExternalID)
	switch {
	case err == nil:
		e.logger.Info("request completed",
			slog.Int64("request_id", requestID),
			slog.Int64("admin_id", adminExternalID),
		)
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyCompleted):
		return err
	default:
		return fmt.Errorf("completing request %d: %w", requestID, err)
	}
}

// ListActive returns active requests ordered high priority first, newest
// first within equal priority. A non-positive limit uses DefaultListLimit.
func (e *Engine) ListActive(ctx context.Context, limit int) ([]domain.RequestSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return e.store.ListActiveRequests(ctx, limit)
}

// Detail returns a request joined with its client.
func (e *Engine) Detail(ctx context.Context, requestID int64) (*domain.RequestDetail, error) {
	return e.store.GetRequestDetail(ctx, requestID)
}

// Stats returns the request table summary.
func (e *Engine) Stats(ctx context.Context) (*domain.Statistics, error) {
	return e.store.GetStatistics(ctx)
}
