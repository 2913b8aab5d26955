package postgres

import (
	"time"

	"github.com/google/uuid"
)

// AdminModel maps to the "admins" table.
type AdminModel struct {
	ExternalID int64  `gorm:"primaryKey;autoIncrement:false"`
	Username   string `gorm:"not null"`
	FullName   string `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (AdminModel) TableName() string { return "admins" }

// ClientModel maps to the "clients" table. Rows are written by the
// onboarding pipeline; this service only reads them.
type ClientModel struct {
	ID         int64  `gorm:"primaryKey"`
	FullName   string `gorm:"not null"`
	Phone      string `gorm:"not null"`
	Email      string
	CardNumber string
	CreatedAt  time.Time
}

func (ClientModel) TableName() string { return "clients" }

// RequestModel maps to the "requests" table.
type RequestModel struct {
	ID          int64  `gorm:"primaryKey"`
	ClientID    int64  `gorm:"not null;index"`
	RequestType string `gorm:"not null;index"`
	Priority    string `gorm:"not null"`
	Status      string `gorm:"not null;index;default:'pending'"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (RequestModel) TableName() string { return "requests" }

// AuditLogModel maps to the "audit_logs" table.
// Append-only: no Update or Delete methods exist on the repository.
type AuditLogModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Action          string    `gorm:"not null"`
	AdminExternalID int64     `gorm:"not null;index"`
	ClientID        int64     `gorm:"not null"`
	RequestID       int64     `gorm:"not null;index"`
	Details         string
	CreatedAt       time.Time
}

func (AuditLogModel) TableName() string { return "audit_logs" }
