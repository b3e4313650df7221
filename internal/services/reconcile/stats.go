package reconcile

import (
	"time"

	"github.com/google/uuid"

	"vista-reconciliation-backend/internal/models"
)

// TypeStats aggregates the reconciliation position of one entity type.
type TypeStats struct {
	EntityType      string     `json:"entity_type"`
	ExternalTotal   int64      `json:"external_total"`
	Unmatched       int64      `json:"unmatched"`
	Matched         int64      `json:"matched"`
	Ignored         int64      `json:"ignored"`
	CanonicalTotal  int64      `json:"canonical_total"`
	CanonicalLinked int64      `json:"canonical_linked"`
	LastImportAt    *time.Time `json:"last_import_at"`
}

// ReconciliationStats is the operator dashboard aggregate.
type ReconciliationStats struct {
	Types []TypeStats `json:"types"`
}

// Stats counts the current persisted state for every entity type. Counts are
// always taken fresh so they reflect the latest committed writes.
func (s *Service) Stats(tenant uuid.UUID) (*ReconciliationStats, error) {
	out := &ReconciliationStats{}
	for _, entityType := range EntityTypes {
		d := s.types[entityType]
		ts := TypeStats{EntityType: entityType}

		if err := s.db.Model(d.recordModel()).Where("tenant_id = ?", tenant).Count(&ts.ExternalTotal).Error; err != nil {
			return nil, err
		}
		if err := s.db.Model(d.recordModel()).Where("tenant_id = ? AND link_status = ?", tenant, models.StatusUnmatched).Count(&ts.Unmatched).Error; err != nil {
			return nil, err
		}
		if err := s.db.Model(d.recordModel()).Where("tenant_id = ? AND link_status IN ?", tenant,
			[]string{models.StatusAutoMatched, models.StatusManualMatched}).Count(&ts.Matched).Error; err != nil {
			return nil, err
		}
		if err := s.db.Model(d.recordModel()).Where("tenant_id = ? AND link_status = ?", tenant, models.StatusIgnored).Count(&ts.Ignored).Error; err != nil {
			return nil, err
		}

		if err := s.db.Model(d.canonicalModel()).Where("tenant_id = ?", tenant).Count(&ts.CanonicalTotal).Error; err != nil {
			return nil, err
		}
		if err := s.db.Model(d.canonicalModel()).
			Where("tenant_id = ? AND id IN (?)", tenant, d.claimedIDs(s.db, tenant)).
			Count(&ts.CanonicalLinked).Error; err != nil {
			return nil, err
		}

		last, err := s.batches.LatestCompletedAt(tenant, entityType)
		if err != nil {
			return nil, err
		}
		ts.LastImportAt = last

		out.Types = append(out.Types, ts)
	}
	return out, nil
}
