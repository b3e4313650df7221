package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Canonical entities are owned by the surrounding application. The
// reconciliation engine only reads them, except when the promotion importer
// creates brand-new ones.

type Project struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;index"`
	ProjectNumber string    `gorm:"index"`
	Name          string    `gorm:"index"`
	ClientName    string
	ManagerID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Employee struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;index"`
	EmployeeNumber string    `gorm:"index"`
	FirstName      string
	LastName       string
	Email          string `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type Customer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;index"`
	CustomerNumber string    `gorm:"index"`
	Name           string    `gorm:"index"`
	City           string
	State          string
	Email          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Vendor struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID `gorm:"type:uuid;index"`
	VendorNumber string    `gorm:"index"`
	Name         string    `gorm:"index"`
	City         string
	State        string
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Department struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID `gorm:"type:uuid;index"`
	DepartmentNumber string    `gorm:"index"`
	Name             string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
