package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vista-reconciliation-backend/internal/models"
)

type ImportBatchRepo struct {
	db *gorm.DB
}

func NewImportBatchRepo(db *gorm.DB) *ImportBatchRepo {
	return &ImportBatchRepo{db: db}
}

// WithTx returns a copy of the repo bound to an open transaction.
func (r *ImportBatchRepo) WithTx(tx *gorm.DB) *ImportBatchRepo {
	return &ImportBatchRepo{db: tx}
}

func (r *ImportBatchRepo) Create(batch *models.ImportBatch) error {
	return r.db.Create(batch).Error
}

func (r *ImportBatchRepo) GetByID(tenant, id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := r.db.Where("tenant_id = ? AND id = ?", tenant, id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// Complete patches the final row counters onto a batch once the run is done.
func (r *ImportBatchRepo) Complete(id uuid.UUID, total, added, updated, skipped int) error {
	now := time.Now()
	return r.db.Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_rows":   total,
			"new_rows":     added,
			"updated_rows": updated,
			"skipped_rows": skipped,
			"status":       models.BatchCompleted,
			"completed_at": now,
		}).Error
}

// IncrementAutoMatched adds n to a batch's auto-matched counter. The
// auto-matcher calls this as records from that ingestion run find their links.
func (r *ImportBatchRepo) IncrementAutoMatched(id uuid.UUID, n int) error {
	return r.db.Model(&models.ImportBatch{}).
		Where("id = ?", id).
		UpdateColumn("auto_matched", gorm.Expr("auto_matched + ?", n)).Error
}

// LatestCompletedAt returns the completion time of the most recent batch for
// one entity type, or nil when the type has never been imported.
func (r *ImportBatchRepo) LatestCompletedAt(tenant uuid.UUID, entityType string) (*time.Time, error) {
	var batch models.ImportBatch
	err := r.db.
		Where("tenant_id = ? AND entity_type = ? AND completed_at IS NOT NULL", tenant, entityType).
		Order("completed_at DESC").
		First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return batch.CompletedAt, nil
}
