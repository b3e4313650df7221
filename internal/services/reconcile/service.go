package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vista-reconciliation-backend/internal/config"
	"vista-reconciliation-backend/internal/models"
	"vista-reconciliation-backend/internal/repository"
)

// Service is the reconciliation engine: import/upsert of Vista extracts,
// rule-based auto-matching, duplicate detection, the link lifecycle and bulk
// promotion of orphans into canonical entities.
type Service struct {
	db      *gorm.DB
	canon   *repository.CanonicalRepo
	batches *repository.ImportBatchRepo
	tuning  config.MatchTuning
	types   map[string]*Descriptor
}

func NewService(db *gorm.DB, canon *repository.CanonicalRepo, batches *repository.ImportBatchRepo, tuning config.MatchTuning) *Service {
	return &Service{
		db:      db,
		canon:   canon,
		batches: batches,
		tuning:  tuning,
		types:   buildRegistry(),
	}
}

func (s *Service) descriptor(entityType string) (*Descriptor, error) {
	d, ok := s.types[entityType]
	if !ok {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown entity type %q", entityType)}
	}
	return d, nil
}

// ImportMeta identifies one ingestion run.
type ImportMeta struct {
	Filename   string
	ImportedBy string
}

// Import bulk-upserts extract rows for one entity type. Rows missing their
// natural key are skipped and counted; every other row either creates a new
// unmatched record or refreshes the descriptive fields of an existing one.
// Link state is never touched here - re-imports must not sever links.
func (s *Service) Import(entityType string, tenant uuid.UUID, rows []Row, meta ImportMeta) (*models.ImportBatch, error) {
	d, err := s.descriptor(entityType)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	batch := &models.ImportBatch{
		ID:         uuid.New(),
		TenantID:   tenant,
		EntityType: d.EntityType,
		Filename:   meta.Filename,
		Status:     models.BatchProcessing,
		ImportedBy: meta.ImportedBy,
		StartedAt:  now,
		CreatedAt:  now,
	}
	if err := s.batches.Create(batch); err != nil {
		return nil, err
	}

	var added, updated, skipped int
	for i, row := range rows {
		isNew, err := s.upsertRow(d, tenant, row, batch.ID)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				logrus.WithFields(logrus.Fields{
					"entity_type": d.EntityType,
					"batch_id":    batch.ID,
					"row":         i,
				}).Warn(verr.Message)
				skipped++
				continue
			}
			return nil, err
		}
		if isNew {
			added++
		} else {
			updated++
		}
	}

	if err := s.batches.Complete(batch.ID, len(rows), added, updated, skipped); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"entity_type": d.EntityType,
		"batch_id":    batch.ID,
		"total":       len(rows),
		"new":         added,
		"updated":     updated,
		"skipped":     skipped,
	}).Info("import batch completed")

	return s.batches.GetByID(tenant, batch.ID)
}

func (s *Service) upsertRow(d *Descriptor, tenant uuid.UUID, row Row, batchID uuid.UUID) (bool, error) {
	key := row.Str(d.keyField)
	if key == "" {
		return false, &ValidationError{Message: d.keyField + " is required"}
	}

	now := time.Now()
	existing, err := d.findByKey(s.db, tenant, key)
	if err != nil {
		return false, err
	}
	if existing != nil {
		d.applyRow(existing, row)
		existing.StampImport(batchID, now)
		return false, s.db.Save(existing).Error
	}

	rec := d.newRecord(tenant, key)
	d.applyRow(rec, row)
	rec.StampImport(batchID, now)
	// The unique (tenant, key) index makes a concurrent double-insert a
	// no-op instead of an error.
	return true, s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec).Error
}

// MatchSummary reports one auto-match pass.
type MatchSummary struct {
	Matched int `json:"matched"`
	Total   int `json:"total"`
}

// AutoMatch runs the rule-based signals over every unmatched record of one
// type. Only exact, structural joins are used here; anything fuzzy goes
// through the duplicate finder for a human to confirm. The whole pass is one
// transaction so the reported counters always agree with persisted state.
func (s *Service) AutoMatch(entityType string, tenant uuid.UUID) (MatchSummary, error) {
	var summary MatchSummary
	d, err := s.descriptor(entityType)
	if err != nil {
		return summary, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		canon := s.canon.WithTx(tx)
		records, err := d.listByStatus(tx, tenant, models.StatusUnmatched)
		if err != nil {
			return err
		}
		summary.Total = len(records)

		now := time.Now()
		matchedByBatch := make(map[uuid.UUID]int)
		for _, rec := range records {
			var hits []string
			var contributions []float64
			for _, sig := range d.signals {
				id, ok, err := sig.Resolve(canon, rec)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				before := copyID(rec.PrimaryLinkID())
				sig.Assign(rec, id)
				// A signal that resolved the exclusive link must not steal a
				// canonical entity another record already claims, including
				// records matched earlier in this pass.
				if before == nil && rec.PrimaryLinkID() != nil {
					holder, err := d.holderOf(lockForUpdate(tx), tenant, id, rec.RecordID())
					if err != nil {
						return err
					}
					if holder != nil {
						rec.SetPrimaryLink(nil)
						continue
					}
				}
				contributions = append(contributions, 1.0)
				hits = append(hits, sig.Name)
			}
			if len(contributions) == 0 {
				continue
			}

			var sum float64
			for _, c := range contributions {
				sum += c
			}
			confidence := sum / float64(len(contributions))

			st := rec.State()
			st.LinkStatus = models.StatusAutoMatched
			st.LinkConfidence = &confidence
			linkedAt := now
			st.LinkedAt = &linkedAt
			details, _ := json.Marshal(map[string]interface{}{
				"signals":    hits,
				"confidence": confidence,
			})
			st.MatchDetails = details

			if err := tx.Save(rec).Error; err != nil {
				return err
			}
			if err := appendAudit(tx, d.EntityType, rec, models.AuditActionAutoMatch, nil, rec.PrimaryLinkID(), "system", "auto-match pass"); err != nil {
				return err
			}
			summary.Matched++
			matchedByBatch[rec.LastImportBatch()]++
		}

		batches := s.batches.WithTx(tx)
		for batchID, n := range matchedByBatch {
			if err := batches.IncrementAutoMatched(batchID, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return MatchSummary{}, err
	}

	logrus.WithFields(logrus.Fields{
		"entity_type": d.EntityType,
		"matched":     summary.Matched,
		"total":       summary.Total,
	}).Info("auto-match pass completed")

	return summary, nil
}

// Link manually attaches an external record to a canonical entity. The
// exclusivity check and the write share one transaction: on postgres the
// holder lookup takes row locks so two operators cannot claim the same
// canonical entity concurrently. Re-linking a record to its current target
// is a no-op.
func (s *Service) Link(entityType string, tenant, externalID, canonicalID uuid.UUID, actor string) (models.ExternalRecord, error) {
	d, err := s.descriptor(entityType)
	if err != nil {
		return nil, err
	}

	var out models.ExternalRecord
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rec, err := d.getByID(lockForUpdate(tx), tenant, externalID)
		if err != nil {
			return err
		}
		if rec == nil {
			return &NotFoundError{EntityType: d.EntityType, ID: externalID}
		}

		// Repeating a manual link to the same target is a no-op; a manual
		// link over an auto-match to the same target still upgrades the
		// status below.
		if cur := rec.PrimaryLinkID(); cur != nil && *cur == canonicalID &&
			rec.State().LinkStatus == models.StatusManualMatched {
			out = rec
			return nil
		}

		holder, err := d.holderOf(lockForUpdate(tx), tenant, canonicalID, rec.RecordID())
		if err != nil {
			return err
		}
		if holder != nil {
			return &ConflictError{
				EntityType:  d.EntityType,
				CanonicalID: canonicalID,
				HolderID:    holder.RecordID(),
				HolderKey:   holder.NaturalKey(),
				HolderLabel: holder.Label(),
			}
		}

		prev := copyID(rec.PrimaryLinkID())
		target := canonicalID
		rec.SetPrimaryLink(&target)

		st := rec.State()
		st.LinkStatus = models.StatusManualMatched
		confidence := 1.0
		st.LinkConfidence = &confidence
		by := actor
		st.LinkedBy = &by
		now := time.Now()
		st.LinkedAt = &now

		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		if err := appendAudit(tx, d.EntityType, rec, models.AuditActionLink, prev, &target, actor, "manual link"); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unlink returns a record to the unmatched pool, clearing every link field.
// Unlinking an already-unmatched record is a no-op.
func (s *Service) Unlink(entityType string, tenant, externalID uuid.UUID, actor string) (models.ExternalRecord, error) {
	d, err := s.descriptor(entityType)
	if err != nil {
		return nil, err
	}

	var out models.ExternalRecord
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rec, err := d.getByID(tx, tenant, externalID)
		if err != nil {
			return err
		}
		if rec == nil {
			return &NotFoundError{EntityType: d.EntityType, ID: externalID}
		}
		if rec.State().LinkStatus == models.StatusUnmatched {
			out = rec
			return nil
		}

		prev := copyID(rec.PrimaryLinkID())
		rec.ClearLinks()
		st := rec.State()
		st.LinkStatus = models.StatusUnmatched
		st.LinkConfidence = nil
		st.LinkedBy = nil
		st.LinkedAt = nil
		st.MatchDetails = nil

		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		if err := appendAudit(tx, d.EntityType, rec, models.AuditActionUnlink, prev, nil, actor, "manual unlink"); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ignore permanently drops a record out of future auto-match and duplicate
// passes without fabricating a link. Link fields are left as they are.
func (s *Service) Ignore(entityType string, tenant, externalID uuid.UUID, actor string) (models.ExternalRecord, error) {
	d, err := s.descriptor(entityType)
	if err != nil {
		return nil, err
	}

	var out models.ExternalRecord
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rec, err := d.getByID(tx, tenant, externalID)
		if err != nil {
			return err
		}
		if rec == nil {
			return &NotFoundError{EntityType: d.EntityType, ID: externalID}
		}

		rec.State().LinkStatus = models.StatusIgnored
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		if err := appendAudit(tx, d.EntityType, rec, models.AuditActionIgnore, copyID(rec.PrimaryLinkID()), copyID(rec.PrimaryLinkID()), actor, "ignored"); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PromotionResult describes one orphan converted into a canonical entity.
type PromotionResult struct {
	ExternalID  uuid.UUID `json:"external_id"`
	NaturalKey  string    `json:"natural_key"`
	CanonicalID uuid.UUID `json:"canonical_id"`
	Name        string    `json:"name"`
}

// PromotionSummary reports one promotion run.
type PromotionSummary struct {
	Imported int               `json:"imported"`
	Total    int               `json:"total"`
	Results  []PromotionResult `json:"results"`
}

// PromoteUnmatched converts every remaining unmatched record of one type into
// a brand-new canonical entity and links it back. The whole invocation is one
// transaction: a failure partway rolls back every promotion in the call,
// because half-promoted data with inconsistent numbering is worse than a
// retry.
func (s *Service) PromoteUnmatched(entityType string, tenant uuid.UUID, actor string) (PromotionSummary, error) {
	var summary PromotionSummary
	d, err := s.descriptor(entityType)
	if err != nil {
		return summary, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		canon := s.canon.WithTx(tx)
		records, err := d.listByStatus(tx, tenant, models.StatusUnmatched)
		if err != nil {
			return err
		}
		summary.Total = len(records)

		now := time.Now()
		for _, rec := range records {
			canonicalID, name, err := d.promote(canon, rec, actor)
			if err != nil {
				return err
			}

			target := canonicalID
			rec.SetPrimaryLink(&target)
			st := rec.State()
			st.LinkStatus = models.StatusManualMatched
			confidence := 1.0
			st.LinkConfidence = &confidence
			by := actor
			st.LinkedBy = &by
			linkedAt := now
			st.LinkedAt = &linkedAt

			if err := tx.Save(rec).Error; err != nil {
				return err
			}
			if err := appendAudit(tx, d.EntityType, rec, models.AuditActionPromote, nil, &target, actor, "promoted to canonical"); err != nil {
				return err
			}

			summary.Imported++
			summary.Results = append(summary.Results, PromotionResult{
				ExternalID:  rec.RecordID(),
				NaturalKey:  rec.NaturalKey(),
				CanonicalID: canonicalID,
				Name:        name,
			})
		}
		return nil
	})
	if err != nil {
		return PromotionSummary{}, err
	}

	logrus.WithFields(logrus.Fields{
		"entity_type": d.EntityType,
		"imported":    summary.Imported,
		"total":       summary.Total,
	}).Info("promotion run completed")

	return summary, nil
}

// GetBatch returns one import batch.
func (s *Service) GetBatch(tenant, batchID uuid.UUID) (*models.ImportBatch, error) {
	batch, err := s.batches.GetByID(tenant, batchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{EntityType: "import_batch", ID: batchID}
	}
	return batch, err
}

// ListRecords pages through external records of one type for operator review.
func (s *Service) ListRecords(entityType string, tenant uuid.UUID, status, cursor, search string, limit int) ([]models.ExternalRecord, string, bool, error) {
	d, err := s.descriptor(entityType)
	if err != nil {
		return nil, "", false, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.listPage(s.db, tenant, status, cursor, search, limit+1)
	if err != nil {
		return nil, "", false, err
	}
	hasMore := false
	nextCursor := ""
	if len(rows) > limit {
		hasMore = true
		rows = rows[:limit]
		nextCursor = rows[limit-1].RecordID().String()
	}
	return rows, nextCursor, hasMore, nil
}

func appendAudit(tx *gorm.DB, entityType string, rec models.ExternalRecord, action string, prev, next *uuid.UUID, actor, reason string) error {
	return tx.Create(&models.LinkAuditLog{
		ID:             uuid.New(),
		TenantID:       rec.Tenant(),
		EntityType:     entityType,
		ExternalID:     rec.RecordID(),
		Action:         action,
		PreviousTarget: copyID(prev),
		NewTarget:      copyID(next),
		PerformedBy:    actor,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}).Error
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// lockForUpdate takes row locks on stores that support them. sqlite (used by
// the test suite) serializes writers on its own and rejects FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
