// Package domain holds the core entities of the call-center service desk:
// admins, clients, service requests, and audit log entries. Types here are
// ORM-free; persistence mapping lives in the storage backends.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced request or client does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyCompleted is returned when completing a request that has already
// been completed. Distinct from ErrNotFound: the row exists, the transition
// is a no-op.
var ErrAlreadyCompleted = errors.New("request already completed")

// RequestType classifies a service request.
type RequestType string

const (
	TypeBlockCard   RequestType = "block_card"
	TypeBlockApp    RequestType = "block_app"
	TypeReissueCard RequestType = "reissue_card"
	TypeOther       RequestType = "other"
)

// Priority orders requests in listings. It is assigned at intake and never
// changed afterwards.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the numeric ordering key for a priority: high=1, medium=2,
// everything else 3. Used purely for read-side ordering.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Status is the lifecycle state of a request. Transitions only move forward:
// pending → processing → completed. Completed is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Admin is a call-center administrator identified by their chat platform ID.
// Created on first contact, never deleted.
type Admin struct {
	ExternalID int64
	Username   string
	FullName   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Client is a bank customer. Read-only from this service's perspective —
// records are created by the onboarding pipeline.
type Client struct {
	ID         int64
	FullName   string
	Phone      string
	Email      string
	CardNumber string
}

// Request is a customer service request moving through the lifecycle.
type Request struct {
	ID          int64
	ClientID    int64
	Type        RequestType
	Priority    Priority
	Status      Status
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RequestSummary is a listing row: request fields joined with the client
// name and phone for display.
type RequestSummary struct {
	ID          int64
	Type        RequestType
	Priority    Priority
	Status      Status
	CreatedAt   time.Time
	ClientName  string
	ClientPhone string
}

// RequestDetail is a request joined with its full client record.
type RequestDetail struct {
	Request Request
	Client  Client
}

// AuditLogEntry proves that a specific admin performed a specific lifecycle
// transition at a specific time. Append-only, immutable once written.
type AuditLogEntry struct {
	ID              uuid.UUID
	Action          string // The request type of the completed request.
	AdminExternalID int64
	ClientID        int64
	RequestID       int64
	Details         string
	CreatedAt       time.Time
}

// TypeCount is a request type with its occurrence count.
type TypeCount struct {
	Type  RequestType
	Count int64
}

// Statistics summarizes the request table: totals per status and the most
// frequent request types.
type Statistics struct {
	Total      int64
	Pending    int64
	Processing int64
	Completed  int64
	TopTypes   []TypeCount // At most five, count descending, type ascending on ties.
}
