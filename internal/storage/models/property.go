// Package models contains the domain models for the application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Property status constants
const (
	PropertyStatusActive    = "active"
	PropertyStatusSuspended = "suspended"
	PropertyStatusDeleted   = "deleted"
)

// BedType identifies a bed configuration entry.
type BedType string

// Bed types recognized by the linen rule table.
const (
	BedMatrimoniale BedType = "matrimoniale"
	BedSingolo      BedType = "singolo"
	BedDivanoLetto  BedType = "divano-letto"
	BedCastello     BedType = "castello"
)

// Bed is one entry in a property's ordered bed configuration.
type Bed struct {
	Type BedType `json:"type" validate:"required,oneof=matrimoniale singolo divano-letto castello"`
	Room string  `json:"room,omitempty"`
}

// Property represents a managed rental unit.
type Property struct {
	ID            string          `json:"id"`
	Name          string          `json:"name" validate:"required"`
	Address       string          `json:"address"`
	Status        string          `json:"status" validate:"oneof=active suspended deleted"`
	Timezone      string          `json:"timezone"`
	MaxGuests     int             `json:"max_guests" validate:"gte=0"`
	Bathrooms     int             `json:"bathrooms" validate:"gte=0"`
	CleaningPrice decimal.Decimal `json:"cleaning_price"`
	Beds          []Bed           `json:"beds" validate:"dive"`

	// LinenOverrides maps a guest count to a fixed bed-linen requirement
	// (inventory key -> quantity) that replaces the computed one.
	LinenOverrides map[int]map[string]int `json:"linen_overrides,omitempty"`

	SyncLockedAt *time.Time `json:"sync_locked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Location resolves the property's timezone. Properties without a valid
// timezone use fallback, or UTC when fallback is nil.
func (p *Property) Location(fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if p.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// PropertyFeed is one external calendar feed configured on a property.
type PropertyFeed struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"property_id" validate:"required"`
	Source     string     `json:"source" validate:"required"`
	URL        string     `json:"url" validate:"required,url"`
	Enabled    bool       `json:"enabled"`
	LastHash   *string    `json:"last_hash,omitempty"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  *string    `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
