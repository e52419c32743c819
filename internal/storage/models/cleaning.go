package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cleaning status constants
const (
	CleaningStatusScheduled  = "scheduled"
	CleaningStatusInProgress = "in_progress"
	CleaningStatusCompleted  = "completed"
	CleaningStatusCancelled  = "cancelled"
)

// Cleaning is the turnover task generated from a booking's checkout.
type Cleaning struct {
	ID            string          `json:"id"`
	PropertyID    string          `json:"property_id" validate:"required"`
	BookingID     *string         `json:"booking_id,omitempty"`
	ScheduledDate string          `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	GuestsCount   int             `json:"guests_count" validate:"gte=0"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status" validate:"oneof=scheduled in_progress completed cancelled"`

	// Operator overrides survive re-sync: once set, price/guests are never
	// clobbered by a later run.
	PriceOverridden  bool `json:"price_overridden"`
	GuestsOverridden bool `json:"guests_overridden"`

	// NeedsReview is set when a booking date moved after the cleaning had
	// already progressed past scheduled.
	NeedsReview bool    `json:"needs_review"`
	ReviewNote  *string `json:"review_note,omitempty"`

	LinenOrderID *string   `json:"linen_order_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Active reports whether the cleaning still counts against the one-per-day
// uniqueness rule.
func (c *Cleaning) Active() bool {
	return c.Status != CleaningStatusCancelled
}
