package reconcile

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vista-reconciliation-backend/internal/models"
	"vista-reconciliation-backend/internal/repository"
)

// Signal is one exact, structural auto-match rule: resolve a free-text field
// on the record against a canonical table, and on a hit populate the matching
// link field. Fuzzy name matching deliberately stays out of signals; it only
// ever feeds the human-reviewed duplicate finder.
type Signal struct {
	Name    string
	Resolve func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error)
	Assign  func(rec models.ExternalRecord, id uuid.UUID)
}

// Candidate is an unclaimed canonical entity offered to the duplicate finder.
type Candidate struct {
	ID       uuid.UUID
	Number   string
	Name     string
	City     string
	LastName string
}

// NamedValue is a record-side name field together with the field name that
// produced it, so duplicate results can say which field scored.
type NamedValue struct {
	Field string
	Value string
}

// dupProfile is everything the duplicate finder reads off one record.
type dupProfile struct {
	Names    []NamedValue
	City     string
	LastName string
}

// Descriptor parameterizes the reconciliation flow for one entity type:
// which column is the natural key, which link column is exclusive, which
// auto-match signals apply, what the duplicate finder compares, and how a
// promotion synthesizes a canonical entity. One descriptor per type replaces
// five hand-copied flows.
type Descriptor struct {
	EntityType        string
	keyField          string
	keyColumn         string
	primaryLinkColumn string
	searchColumns     []string

	signals    []Signal
	newRecord  func(tenant uuid.UUID, key string) models.ExternalRecord
	applyRow   func(rec models.ExternalRecord, row Row)
	profile    func(rec models.ExternalRecord) dupProfile
	candidates func(db *gorm.DB, tenant uuid.UUID) ([]Candidate, error)
	promote    func(canon *repository.CanonicalRepo, rec models.ExternalRecord, actor string) (uuid.UUID, string, error)

	recordModel    func() interface{}
	canonicalModel func() interface{}

	findByKey    func(db *gorm.DB, tenant uuid.UUID, key string) (models.ExternalRecord, error)
	getByID      func(db *gorm.DB, tenant, id uuid.UUID) (models.ExternalRecord, error)
	listByStatus func(db *gorm.DB, tenant uuid.UUID, statuses ...string) ([]models.ExternalRecord, error)
	listPage     func(db *gorm.DB, tenant uuid.UUID, status, cursor, search string, limit int) ([]models.ExternalRecord, error)
	holderOf     func(db *gorm.DB, tenant, canonicalID, exclude uuid.UUID) (models.ExternalRecord, error)
}

// claimedIDs is the set of canonical ids already linked from records of this
// type; the duplicate finder excludes them from candidacy.
func (d *Descriptor) claimedIDs(db *gorm.DB, tenant uuid.UUID) *gorm.DB {
	return db.Model(d.recordModel()).
		Select(d.primaryLinkColumn).
		Where("tenant_id = ? AND "+d.primaryLinkColumn+" IS NOT NULL", tenant)
}

// recordPtr constrains the generic store plumbing to pointers to the five
// Vista record structs.
type recordPtr[T any] interface {
	*T
	models.ExternalRecord
}

// bindStore fills in the type-specific query closures for one record struct.
// Everything here is mechanical gorm plumbing; behavior lives in the
// registry's signals, profiles and promotions.
func bindStore[T any, PT recordPtr[T]](d *Descriptor) *Descriptor {
	d.recordModel = func() interface{} { return PT(new(T)) }

	d.findByKey = func(db *gorm.DB, tenant uuid.UUID, key string) (models.ExternalRecord, error) {
		rec := PT(new(T))
		err := db.Where("tenant_id = ? AND "+d.keyColumn+" = ?", tenant, key).First(rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	d.getByID = func(db *gorm.DB, tenant, id uuid.UUID) (models.ExternalRecord, error) {
		rec := PT(new(T))
		err := db.Where("tenant_id = ? AND id = ?", tenant, id).First(rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	d.listByStatus = func(db *gorm.DB, tenant uuid.UUID, statuses ...string) ([]models.ExternalRecord, error) {
		var rows []PT
		err := db.Where("tenant_id = ? AND link_status IN ?", tenant, statuses).
			Order(d.keyColumn + " ASC").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		out := make([]models.ExternalRecord, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	}

	d.listPage = func(db *gorm.DB, tenant uuid.UUID, status, cursor, search string, limit int) ([]models.ExternalRecord, error) {
		q := db.Where("tenant_id = ?", tenant).Order("id ASC").Limit(limit)
		if status != "" && status != "all" {
			q = q.Where("link_status = ?", status)
		}
		if cursor != "" {
			q = q.Where("id > ?", cursor)
		}
		if search != "" {
			like := "%" + strings.ToLower(search) + "%"
			conds := make([]string, len(d.searchColumns))
			args := make([]interface{}, len(d.searchColumns))
			for i, col := range d.searchColumns {
				conds[i] = "LOWER(" + col + ") LIKE ?"
				args[i] = like
			}
			q = q.Where(strings.Join(conds, " OR "), args...)
		}
		var rows []PT
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]models.ExternalRecord, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	}

	d.holderOf = func(db *gorm.DB, tenant, canonicalID, exclude uuid.UUID) (models.ExternalRecord, error) {
		rec := PT(new(T))
		q := db.Where("tenant_id = ? AND "+d.primaryLinkColumn+" = ?", tenant, canonicalID)
		if exclude != uuid.Nil {
			q = q.Where("id <> ?", exclude)
		}
		err := q.First(rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	return d
}
