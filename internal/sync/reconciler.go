// Package sync drives the booking-to-operations synchronization engine:
// feed reconciliation, the downstream cleaning/linen cascade, and the
// scheduled orchestration across the property fleet.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
)

// Reconciler diffs parsed feed events against stored bookings for one
// property+source and applies create/update/cancel decisions.
type Reconciler struct {
	bookings   *storage.BookingRepository
	cleanings  *storage.CleaningRepository
	exclusions *storage.ExclusionRepository
	defaultLoc *time.Location
}

// NewReconciler creates a booking reconciler. defaultLoc is used for
// properties without their own timezone; nil means UTC.
func NewReconciler(
	bookings *storage.BookingRepository,
	cleanings *storage.CleaningRepository,
	exclusions *storage.ExclusionRepository,
	defaultLoc *time.Location,
) *Reconciler {
	return &Reconciler{
		bookings:   bookings,
		cleanings:  cleanings,
		exclusions: exclusions,
		defaultLoc: defaultLoc,
	}
}

// Reconcile applies one source's parsed events to the stored bookings of a
// property. Events match stored bookings by external UID when present, by
// normalized checkout day otherwise (UID-less feeds emit at most one event
// per distinct checkout date). Stored active bookings with no matching
// event are cancelled; past-checkout ones are completed instead.
func (r *Reconciler) Reconcile(ctx context.Context, p *models.Property, source string, events []models.ExternalEvent) (*models.SourceReport, error) {
	report := &models.SourceReport{Source: source, EventsSeen: len(events)}
	loc := p.Location(r.defaultLoc)

	stored, err := r.bookings.ListActiveBySource(ctx, p.ID, source)
	if err != nil {
		return report, fmt.Errorf("listing bookings: %w", err)
	}

	byUID := make(map[string]*models.Booking)
	byDay := make(map[string]*models.Booking)
	for i := range stored {
		b := &stored[i]
		if b.ExternalUID != nil && *b.ExternalUID != "" {
			byUID[*b.ExternalUID] = b
		}
		byDay[b.CheckoutDay(loc)] = b
	}

	matched := make(map[string]bool, len(stored))

	for _, event := range events {
		day := models.NormalizeDay(event.CheckOut, loc)

		var existing *models.Booking
		if event.UID != "" {
			existing = byUID[event.UID]
		}
		if existing == nil && event.UID == "" {
			existing = byDay[day]
		}

		if existing != nil {
			matched[existing.ID] = true
			updated, err := r.updateIfChanged(ctx, p, existing, event)
			if err != nil {
				return report, err
			}
			if updated {
				report.Updated++
			}
			continue
		}

		excluded, err := r.exclusions.Exists(ctx, p.ID, day, source)
		if err != nil {
			return report, fmt.Errorf("checking exclusion: %w", err)
		}
		if excluded {
			log.Debug().
				Str("property_id", p.ID).
				Str("source", source).
				Str("day", day).
				Msg("Booking creation suppressed by exclusion")
			report.Skipped++
			continue
		}

		b := &models.Booking{
			PropertyID: p.ID,
			Source:     source,
			CheckIn:    event.CheckIn,
			CheckOut:   event.CheckOut,
			GuestName:  event.GuestName,
			Status:     models.BookingStatusActive,
		}
		if event.UID != "" {
			uid := event.UID
			b.ExternalUID = &uid
		}
		if err := r.bookings.Create(ctx, b); err != nil {
			return report, fmt.Errorf("creating booking: %w", err)
		}
		report.Created++
	}

	cancelled, err := r.cancelMissing(ctx, stored, matched)
	if err != nil {
		return report, err
	}
	report.Cancelled = cancelled

	return report, nil
}

// updateIfChanged updates a stored booking whose dates or guest name drifted
// from the feed. A checkout-date change re-runs the cleaning policy: a still
// scheduled cleaning is shifted to the new day, one that already progressed
// is left in place and flagged for manual review.
func (r *Reconciler) updateIfChanged(ctx context.Context, p *models.Property, b *models.Booking, event models.ExternalEvent) (bool, error) {
	loc := p.Location(r.defaultLoc)
	oldDay := b.CheckoutDay(loc)
	newDay := models.NormalizeDay(event.CheckOut, loc)

	if b.CheckIn.Equal(event.CheckIn) && b.CheckOut.Equal(event.CheckOut) && b.GuestName == event.GuestName {
		return false, nil
	}

	b.CheckIn = event.CheckIn
	b.CheckOut = event.CheckOut
	b.GuestName = event.GuestName
	if err := r.bookings.Update(ctx, b); err != nil {
		return false, fmt.Errorf("updating booking: %w", err)
	}

	if oldDay != newDay && b.CleaningID != nil {
		if err := r.shiftCleaning(ctx, *b.CleaningID, oldDay, newDay); err != nil {
			return false, err
		}
	}

	return true, nil
}

func (r *Reconciler) shiftCleaning(ctx context.Context, cleaningID, oldDay, newDay string) error {
	c, err := r.cleanings.GetByID(ctx, cleaningID)
	if err != nil {
		return fmt.Errorf("loading cleaning: %w", err)
	}
	if c == nil || c.Status == models.CleaningStatusCancelled {
		return nil
	}

	if c.Status == models.CleaningStatusScheduled {
		c.ScheduledDate = newDay
		if err := r.cleanings.Update(ctx, c); err != nil {
			return fmt.Errorf("shifting cleaning: %w", err)
		}
		log.Info().
			Str("cleaning_id", c.ID).
			Str("from", oldDay).
			Str("to", newDay).
			Msg("Cleaning shifted to new checkout")
		return nil
	}

	// In progress or completed: do not move it, flag the conflict.
	note := fmt.Sprintf("booking checkout moved from %s to %s after cleaning started", oldDay, newDay)
	c.NeedsReview = true
	c.ReviewNote = &note
	if err := r.cleanings.Update(ctx, c); err != nil {
		return fmt.Errorf("flagging cleaning: %w", err)
	}
	log.Warn().Str("cleaning_id", c.ID).Str("note", note).Msg("Cleaning flagged for review")
	return nil
}

// cancelMissing cancels stored bookings whose event disappeared from the
// feed, cascading to their still-scheduled cleanings (cancelled, not
// deleted, to preserve the audit trail). Bookings whose checkout already
// passed simply age out as completed.
func (r *Reconciler) cancelMissing(ctx context.Context, stored []models.Booking, matched map[string]bool) (int, error) {
	now := time.Now().UTC()
	cancelled := 0

	for i := range stored {
		b := &stored[i]
		if matched[b.ID] {
			continue
		}

		if b.CheckOut.Before(now) {
			if err := r.bookings.UpdateStatus(ctx, b.ID, models.BookingStatusCompleted); err != nil {
				return cancelled, fmt.Errorf("completing booking: %w", err)
			}
			continue
		}

		if err := r.bookings.UpdateStatus(ctx, b.ID, models.BookingStatusCancelled); err != nil {
			return cancelled, fmt.Errorf("cancelling booking: %w", err)
		}
		cancelled++

		if b.CleaningID == nil {
			continue
		}
		c, err := r.cleanings.GetByID(ctx, *b.CleaningID)
		if err != nil {
			return cancelled, fmt.Errorf("loading cleaning: %w", err)
		}
		if c != nil && c.Status == models.CleaningStatusScheduled {
			if err := r.cleanings.UpdateStatus(ctx, c.ID, models.CleaningStatusCancelled); err != nil {
				return cancelled, fmt.Errorf("cancelling cleaning: %w", err)
			}
			log.Info().
				Str("booking_id", b.ID).
				Str("cleaning_id", c.ID).
				Msg("Cancelled booking and its scheduled cleaning")
		}
	}

	return cancelled, nil
}
