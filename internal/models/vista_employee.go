package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VistaEmployee is an employee row from the Vista extract, resolving against
// at most one canonical employee.
type VistaEmployee struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;uniqueIndex:uq_vista_employees_number"`
	EmployeeNumber string    `gorm:"uniqueIndex:uq_vista_employees_number"`
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Status         string `gorm:"index"`

	EmployeeID *uuid.UUID `gorm:"type:uuid;index"`

	LinkState

	ImportStamp
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *VistaEmployee) RecordID() uuid.UUID { return e.ID }
func (e *VistaEmployee) Tenant() uuid.UUID   { return e.TenantID }
func (e *VistaEmployee) NaturalKey() string  { return e.EmployeeNumber }

func (e *VistaEmployee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (e *VistaEmployee) Label() string {
	if name := e.FullName(); name != "" {
		return name
	}
	return e.EmployeeNumber
}

func (e *VistaEmployee) State() *LinkState            { return &e.LinkState }
func (e *VistaEmployee) PrimaryLinkID() *uuid.UUID    { return e.EmployeeID }
func (e *VistaEmployee) SetPrimaryLink(id *uuid.UUID) { e.EmployeeID = id }
func (e *VistaEmployee) ClearLinks()                  { e.EmployeeID = nil }
