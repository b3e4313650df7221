package models

import (
	"time"

	"github.com/google/uuid"
)

// VistaCustomer is a customer row from the Vista extract. Vista tracks both
// the account owner and the facility the account bills to, so duplicate
// detection scores against whichever name field fits best.
type VistaCustomer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;uniqueIndex:uq_vista_customers_number"`
	CustomerNumber string    `gorm:"uniqueIndex:uq_vista_customers_number"`
	OwnerName      string
	FacilityName   string
	City           string
	StateCode      string `gorm:"column:state"`
	Phone          string

	CustomerID *uuid.UUID `gorm:"type:uuid;index"`

	LinkState

	ImportStamp
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *VistaCustomer) RecordID() uuid.UUID { return c.ID }
func (c *VistaCustomer) Tenant() uuid.UUID   { return c.TenantID }
func (c *VistaCustomer) NaturalKey() string  { return c.CustomerNumber }

func (c *VistaCustomer) Label() string {
	if c.OwnerName != "" {
		return c.OwnerName
	}
	if c.FacilityName != "" {
		return c.FacilityName
	}
	return c.CustomerNumber
}

func (c *VistaCustomer) State() *LinkState            { return &c.LinkState }
func (c *VistaCustomer) PrimaryLinkID() *uuid.UUID    { return c.CustomerID }
func (c *VistaCustomer) SetPrimaryLink(id *uuid.UUID) { c.CustomerID = id }
func (c *VistaCustomer) ClearLinks()                  { c.CustomerID = nil }
