package models

import "time"

// Booking status constants
const (
	BookingStatusActive    = "active"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// Booking represents a guest reservation reconciled from an external feed.
type Booking struct {
	ID          string    `json:"id"`
	PropertyID  string    `json:"property_id" validate:"required"`
	Source      string    `json:"source" validate:"required"`
	ExternalUID *string   `json:"external_uid,omitempty"`
	CheckIn     time.Time `json:"check_in" validate:"required"`
	CheckOut    time.Time `json:"check_out" validate:"required"`
	GuestName   string    `json:"guest_name"`
	GuestsCount *int      `json:"guests_count,omitempty"`
	Status      string    `json:"status" validate:"oneof=active cancelled completed"`
	CleaningID  *string   `json:"cleaning_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CheckoutDay returns the booking's normalized checkout day in loc.
func (b *Booking) CheckoutDay(loc *time.Location) string {
	return NormalizeDay(b.CheckOut, loc)
}

// ExternalEvent is one reservation parsed from a calendar feed.
type ExternalEvent struct {
	UID       string    `json:"uid,omitempty"`
	Source    string    `json:"source"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	GuestName string    `json:"guest_name,omitempty"`
}
