package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/kituo/internal/domain"
)

const defaultListLimit = 10

// activeRequestRow is the scan target for the listing join.
type activeRequestRow struct {
	ID          int64
	RequestType string
	Priority    string
	Status      string
	CreatedAt   time.Time
	FullName    string
	Phone       string
}

// ListActiveRequests returns pending and processing requests joined with the
// client name and phone, ordered by priority rank ascending and creation
// time descending. Equal-priority ties resolve newest first.
func (s *Store) ListActiveRequests(ctx context.Context, limit int) ([]domain.RequestSummary, error) {
	defer s.timeOp("list_active_requests")()

	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows []activeRequestRow
	err := s.db.WithContext(ctx).
		Model(&RequestModel{}).
		Select("requests.id, requests.request_type, requests.priority, requests.status, requests.created_at, clients.full_name, clients.phone").
		Joins("JOIN clients ON clients.id = requests.client_id").
		Where("requests.status IN ?", []string{string(domain.StatusPending), string(domain.StatusProcessing)}).
		Order("CASE requests.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, requests.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing active requests: %w", err)
	}

	summaries := make([]domain.RequestSummary, len(rows))
	for i, r := range rows {
		summaries[i] = domain.RequestSummary{
			ID:          r.ID,
			Type:        domain.RequestType(r.RequestType),
			Priority:    domain.Priority(r.Priority),
			Status:      domain.Status(r.Status),
			CreatedAt:   r.CreatedAt,
			ClientName:  r.FullName,
			ClientPhone: r.Phone,
		}
	}
	return summaries, nil
}

// GetRequestDetail returns a request joined with its client record.
func (s *Store) GetRequestDetail(ctx context.Context, requestID int64) (*domain.RequestDetail, error) {
	defer s.timeOp("get_request_detail")()

	var req RequestModel
	err := s.db.WithContext(ctx).First(&req, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading request %d: %w", requestID, err)
	}

	var client ClientModel
	err = s.db.WithContext(ctx).First(&client, "id = ?", req.ClientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading client %d: %w", req.ClientID, err)
	}

	return &domain.RequestDetail{
		Request: toRequestDomain(&req),
		Client:  toClientDomain(&client),
	}, nil
}

// CompleteRequest marks a request completed and appends the audit entry in a
// single transaction. The conditional UPDATE serializes concurrent
// completions: exactly one caller flips the row and writes the audit entry,
// the other observes zero rows affected and gets ErrAlreadyCompleted.
func (s *Store) CompleteRequest(ctx context.Context, requestID, adminExternalID int64) error {
	defer s.timeOp("complete_request")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&RequestModel{}).
			Where("id = ? AND status <> ?", requestID, string(domain.StatusCompleted)).
			Updates(map[string]any{
				"status":     string(domain.StatusCompleted),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("completing request %d: %w", requestID, res.Error)
		}

		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&RequestModel{}).Where("id = ?", requestID).Count(&count).Error; err != nil {
				return fmt.Errorf("checking request %d: %w", requestID, err)
			}
			if count == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrAlreadyCompleted
		}

		// The update does not touch client_id or request_type, so reading
		// after the update still yields the prior type for the audit action.
		var req RequestModel
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			return fmt.Errorf("reloading request %d: %w", requestID, err)
		}

		entry := AuditLogModel{
			ID:              uuid.New(),
			Action:          req.RequestType,
			AdminExternalID: adminExternalID,
			ClientID:        req.ClientID,
			RequestID:       requestID,
			Details:         "request completed",
			CreatedAt:       time.Now().UTC(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("appending audit entry for request %d: %w", requestID, err)
		}
		return nil
	})
}

// GetStatistics returns total and per-status counts plus the five most
// frequent request types. Ties break by request type ascending so the result
// is deterministic.
func (s *Store) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	defer s.timeOp("get_statistics")()

	stats := &domain.Statistics{}

	if err := s.db.WithContext(ctx).Model(&RequestModel{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("counting requests: %w", err)
	}

	for status, dst := range map[domain.Status]*int64{
		domain.StatusPending:    &stats.Pending,
		domain.StatusProcessing: &stats.Processing,
		domain.StatusCompleted:  &stats.Completed,
	} {
		err := s.db.WithContext(ctx).Model(&RequestModel{}).
			Where("status = ?", string(status)).
			Count(dst).Error
		if err != nil {
			return nil, fmt.Errorf("counting %s requests: %w", status, err)
		}
	}

	var rows []struct {
		RequestType string
		Count       int64
	}
	err := s.db.WithContext(ctx).Model(&RequestModel{}).
		Select("request_type, COUNT(*) AS count").
		Group("request_type").
		Order("count DESC, request_type ASC").
		Limit(5).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ranking request types: %w", err)
	}

	for _, r := range rows {
		stats.TopTypes = append(stats.TopTypes, domain.TypeCount{
			Type:  domain.RequestType(r.RequestType),
			Count: r.Count,
		})
	}
	return stats, nil
}
