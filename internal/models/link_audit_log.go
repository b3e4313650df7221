package models

import (
	"time"

	"github.com/google/uuid"
)

// LinkAuditLog is an append-only trail of link lifecycle transitions.
type LinkAuditLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;index"`
	EntityType     string    `gorm:"index"`
	ExternalID     uuid.UUID `gorm:"type:uuid;index"`
	Action         string
	PreviousTarget *uuid.UUID `gorm:"type:uuid"`
	NewTarget      *uuid.UUID `gorm:"type:uuid"`
	PerformedBy    string
	Reason         string
	CreatedAt      time.Time
}

const (
	AuditActionAutoMatch = "auto_match"
	AuditActionLink      = "link"
	AuditActionUnlink    = "unlink"
	AuditActionIgnore    = "ignore"
	AuditActionPromote   = "promote"
)
