package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vista-reconciliation-backend/internal/models"
)

// CanonicalRepo reads the canonical tables owned by the surrounding
// application. Lookups used as auto-match signals treat "not found" as a
// normal miss and return a nil record.
type CanonicalRepo struct {
	db *gorm.DB
}

func NewCanonicalRepo(db *gorm.DB) *CanonicalRepo {
	return &CanonicalRepo{db: db}
}

// WithTx returns a copy of the repo bound to an open transaction.
func (r *CanonicalRepo) WithTx(tx *gorm.DB) *CanonicalRepo {
	return &CanonicalRepo{db: tx}
}

func firstOrNil[T any](q *gorm.DB) (*T, error) {
	var out T
	err := q.First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CanonicalRepo) ProjectByNumber(tenant uuid.UUID, number string) (*models.Project, error) {
	return firstOrNil[models.Project](r.db.Where("tenant_id = ? AND project_number = ?", tenant, number))
}

func (r *CanonicalRepo) EmployeeByNumber(tenant uuid.UUID, number string) (*models.Employee, error) {
	return firstOrNil[models.Employee](r.db.Where("tenant_id = ? AND employee_number = ?", tenant, number))
}

func (r *CanonicalRepo) EmployeeByEmail(tenant uuid.UUID, email string) (*models.Employee, error) {
	return firstOrNil[models.Employee](r.db.Where("tenant_id = ? AND LOWER(email) = LOWER(?)", tenant, email))
}

func (r *CanonicalRepo) DepartmentByNumber(tenant uuid.UUID, number string) (*models.Department, error) {
	return firstOrNil[models.Department](r.db.Where("tenant_id = ? AND department_number = ?", tenant, number))
}

func (r *CanonicalRepo) CustomerByNumber(tenant uuid.UUID, number string) (*models.Customer, error) {
	return firstOrNil[models.Customer](r.db.Where("tenant_id = ? AND customer_number = ?", tenant, number))
}

func (r *CanonicalRepo) CustomerByName(tenant uuid.UUID, name string) (*models.Customer, error) {
	return firstOrNil[models.Customer](r.db.Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenant, name))
}

func (r *CanonicalRepo) VendorByNumber(tenant uuid.UUID, number string) (*models.Vendor, error) {
	return firstOrNil[models.Vendor](r.db.Where("tenant_id = ? AND vendor_number = ?", tenant, number))
}

func (r *CanonicalRepo) VendorByName(tenant uuid.UUID, name string) (*models.Vendor, error) {
	return firstOrNil[models.Vendor](r.db.Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenant, name))
}

// Create inserts a brand-new canonical entity. Only the promotion importer
// may call this; everything else in the engine treats canonical tables as
// read-only.
func (r *CanonicalRepo) Create(entity any) error {
	return r.db.Create(entity).Error
}
