package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VistaWorkOrder is a work order row from the Vista extract. Work orders
// carry the same link surface as contracts and promote into projects.
type VistaWorkOrder struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID `gorm:"type:uuid;uniqueIndex:uq_vista_work_orders_number"`
	WorkOrderNumber string    `gorm:"uniqueIndex:uq_vista_work_orders_number"`
	Description     string
	Amount          decimal.Decimal `gorm:"type:decimal(14,2)"`
	Status          string          `gorm:"index"`
	DepartmentCode  string
	EmployeeNumber  string
	CustomerName    string
	ScheduledDate   *time.Time

	ProjectID    *uuid.UUID `gorm:"type:uuid;index"`
	EmployeeID   *uuid.UUID `gorm:"type:uuid"`
	CustomerID   *uuid.UUID `gorm:"type:uuid"`
	DepartmentID *uuid.UUID `gorm:"type:uuid"`

	LinkState

	ImportStamp
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *VistaWorkOrder) RecordID() uuid.UUID { return w.ID }
func (w *VistaWorkOrder) Tenant() uuid.UUID   { return w.TenantID }
func (w *VistaWorkOrder) NaturalKey() string  { return w.WorkOrderNumber }

func (w *VistaWorkOrder) Label() string {
	if w.Description != "" {
		return w.Description
	}
	return w.WorkOrderNumber
}

func (w *VistaWorkOrder) State() *LinkState            { return &w.LinkState }
func (w *VistaWorkOrder) PrimaryLinkID() *uuid.UUID    { return w.ProjectID }
func (w *VistaWorkOrder) SetPrimaryLink(id *uuid.UUID) { w.ProjectID = id }

func (w *VistaWorkOrder) ClearLinks() {
	w.ProjectID = nil
	w.EmployeeID = nil
	w.CustomerID = nil
	w.DepartmentID = nil
}
