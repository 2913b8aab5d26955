package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// UpsertAdmin inserts an admin keyed by external ID. On conflict only the
// username (and updated_at) is replaced — the full name recorded on first
// contact is preserved, matching the intake contract.
func (s *Store) UpsertAdmin(ctx context.Context, externalID int64, username, fullName string) error {
	defer s.timeOp("upsert_admin")()

	now := time.Now().UTC()
	admin := AdminModel{
		ExternalID: externalID,
		Username:   username,
		FullName:   fullName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
		}).
		Create(&admin).Error
	if err != nil {
		return fmt.Errorf("upserting admin %d: %w", externalID, err)
	}
	return nil
}
