package postgres

import (
	"context"
	"fmt"

	"github.com/jkaninda/kituo/internal/domain"
)

// ListAuditLog returns audit entries, newest first. Limit defaults to 100.
// The table is append-only; the only writer is CompleteRequest, inside its
// completion transaction.
func (s *Store) ListAuditLog(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	defer s.timeOp("list_audit_log")()

	if limit <= 0 {
		limit = 100
	}

	var models []AuditLogModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}

	entries := make([]domain.AuditLogEntry, len(models))
	for i := range models {
		entries[i] = toAuditDomain(&models[i])
	}
	return entries, nil
}
