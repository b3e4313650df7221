package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Link lifecycle statuses shared by every imported Vista record.
const (
	StatusUnmatched     = "unmatched"
	StatusAutoMatched   = "auto_matched"
	StatusManualMatched = "manual_matched"
	StatusIgnored       = "ignored"
)

// Entity types handled by the reconciliation engine.
const (
	EntityContracts  = "contracts"
	EntityWorkOrders = "work_orders"
	EntityEmployees  = "employees"
	EntityCustomers  = "customers"
	EntityVendors    = "vendors"
)

// LinkState carries the reconciliation lifecycle fields embedded in every
// external record model. LinkConfidence is only meaningful while the record
// is auto_matched.
type LinkState struct {
	LinkStatus     string         `gorm:"index"`
	LinkConfidence *float64
	LinkedBy       *string
	LinkedAt       *time.Time
	MatchDetails   datatypes.JSON
}

// ImportStamp records which ingestion run last wrote a row.
type ImportStamp struct {
	ImportBatchID uuid.UUID `gorm:"type:uuid;index"`
	ImportedAt    time.Time
}

func (s *ImportStamp) StampImport(batchID uuid.UUID, at time.Time) {
	s.ImportBatchID = batchID
	s.ImportedAt = at
}

func (s *ImportStamp) LastImportBatch() uuid.UUID { return s.ImportBatchID }

// ExternalRecord is implemented by all five Vista record models so the
// reconciliation engine can run one flow across entity types.
type ExternalRecord interface {
	RecordID() uuid.UUID
	Tenant() uuid.UUID
	NaturalKey() string
	Label() string
	State() *LinkState
	PrimaryLinkID() *uuid.UUID
	SetPrimaryLink(id *uuid.UUID)
	ClearLinks()
	StampImport(batchID uuid.UUID, at time.Time)
	LastImportBatch() uuid.UUID
}
