// Package storage defines the Store interface that abstracts persistence for
// the call-center bot. Two backends are provided: SQLite (default,
// zero-config) and PostgreSQL (production).
package storage

import (
	"context"

	"github.com/jkaninda/kituo/internal/domain"
)

// Store is the persistence interface. Every operation is atomic and opens
// and closes its own transaction scope — no state is carried between calls.
// Both SQLite and PostgreSQL backends implement this interface.
type Store interface {
	// UpsertAdmin inserts an admin keyed by external ID. On conflict only the
	// username is replaced; the full name recorded on first contact is kept.
	// Idempotent.
	UpsertAdmin(ctx context.Context, externalID int64, username, fullName string) error

	// ListActiveRequests returns requests with status pending or processing,
	// ordered by priority rank (high first) and then newest first, capped at
	// limit. Each row carries the client name and phone for display.
	ListActiveRequests(ctx context.Context, limit int) ([]domain.RequestSummary, error)

	// GetRequestDetail returns a request joined with its client.
	// Returns domain.ErrNotFound when no such request exists.
	GetRequestDetail(ctx context.Context, requestID int64) (*domain.RequestDetail, error)

	// CompleteRequest marks a request completed and appends one audit log
	// entry recording the admin who performed the transition, in a single
	// transaction. Returns domain.ErrNotFound if the request does not exist
	// and domain.ErrAlreadyCompleted if it was already completed; in both
	// cases no audit entry is written. Under concurrent completions of the
	// same request exactly one caller succeeds.
	CompleteRequest(ctx context.Context, requestID, adminExternalID int64) error

	// GetStatistics returns total and per-status request counts plus the five
	// most frequent request types. Ties are broken by request type ascending.
	GetStatistics(ctx context.Context) (*domain.Statistics, error)

	// ListAuditLog returns audit entries, newest first, capped at limit.
	ListAuditLog(ctx context.Context, limit int) ([]domain.AuditLogEntry, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Driver returns the storage driver name ("sqlite" or "postgres").
	Driver() string
}

// DriverSQLite is the SQLite driver name.
const DriverSQLite = "sqlite"

// DriverPostgres is the PostgreSQL driver name.
const DriverPostgres = "postgres"
