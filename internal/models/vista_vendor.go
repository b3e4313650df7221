package models

import (
	"time"

	"github.com/google/uuid"
)

// VistaVendor is a vendor row from the Vista extract, resolving against at
// most one canonical vendor.
type VistaVendor struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID `gorm:"type:uuid;uniqueIndex:uq_vista_vendors_number"`
	VendorNumber string    `gorm:"uniqueIndex:uq_vista_vendors_number"`
	Name         string
	City         string
	StateCode    string `gorm:"column:state"`
	Phone        string

	VendorID *uuid.UUID `gorm:"type:uuid;index"`

	LinkState

	ImportStamp
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v *VistaVendor) RecordID() uuid.UUID { return v.ID }
func (v *VistaVendor) Tenant() uuid.UUID   { return v.TenantID }
func (v *VistaVendor) NaturalKey() string  { return v.VendorNumber }

func (v *VistaVendor) Label() string {
	if v.Name != "" {
		return v.Name
	}
	return v.VendorNumber
}

func (v *VistaVendor) State() *LinkState            { return &v.LinkState }
func (v *VistaVendor) PrimaryLinkID() *uuid.UUID    { return v.VendorID }
func (v *VistaVendor) SetPrimaryLink(id *uuid.UUID) { v.VendorID = id }
func (v *VistaVendor) ClearLinks()                  { v.VendorID = nil }
