package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportBatch records one ingestion run of a Vista extract. Counters are
// patched once when the run completes and the row is never touched again.
type ImportBatch struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;index"`
	EntityType  string    `gorm:"index"`
	Filename    string
	TotalRows   int
	NewRows     int
	UpdatedRows int
	SkippedRows int
	AutoMatched int
	Status      string
	ImportedBy  string
	StartedAt   time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
)
