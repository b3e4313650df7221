package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VistaContract is a contract row from the Vista extract. A contract can
// resolve against up to four canonical entities at once: the project it
// became, the managing employee, the owning customer and the department.
type VistaContract struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;uniqueIndex:uq_vista_contracts_number"`
	ContractNumber string    `gorm:"uniqueIndex:uq_vista_contracts_number"`
	Description    string
	Amount         decimal.Decimal `gorm:"type:decimal(14,2)"`
	Status         string          `gorm:"index"`
	DepartmentCode string
	EmployeeNumber string
	CustomerName   string
	StartDate      *time.Time
	EndDate        *time.Time

	ProjectID    *uuid.UUID `gorm:"type:uuid;index"`
	EmployeeID   *uuid.UUID `gorm:"type:uuid"`
	CustomerID   *uuid.UUID `gorm:"type:uuid"`
	DepartmentID *uuid.UUID `gorm:"type:uuid"`

	LinkState

	ImportStamp
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *VistaContract) RecordID() uuid.UUID { return c.ID }
func (c *VistaContract) Tenant() uuid.UUID   { return c.TenantID }
func (c *VistaContract) NaturalKey() string  { return c.ContractNumber }

func (c *VistaContract) Label() string {
	if c.Description != "" {
		return c.Description
	}
	return c.ContractNumber
}

func (c *VistaContract) State() *LinkState            { return &c.LinkState }
func (c *VistaContract) PrimaryLinkID() *uuid.UUID    { return c.ProjectID }
func (c *VistaContract) SetPrimaryLink(id *uuid.UUID) { c.ProjectID = id }

func (c *VistaContract) ClearLinks() {
	c.ProjectID = nil
	c.EmployeeID = nil
	c.CustomerID = nil
	c.DepartmentID = nil
}
