package cleaning

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
)

// Generator derives cleaning tasks from booking checkouts.
type Generator struct {
	cleanings  *storage.CleaningRepository
	bookings   *storage.BookingRepository
	exclusions *storage.ExclusionRepository
	pricing    PricingPolicy
	defaultLoc *time.Location
}

// NewGenerator creates a cleaning generator. defaultLoc is used for
// properties without their own timezone; nil means UTC.
func NewGenerator(
	cleanings *storage.CleaningRepository,
	bookings *storage.BookingRepository,
	exclusions *storage.ExclusionRepository,
	pricing PricingPolicy,
	defaultLoc *time.Location,
) *Generator {
	return &Generator{
		cleanings:  cleanings,
		bookings:   bookings,
		exclusions: exclusions,
		pricing:    pricing,
		defaultLoc: defaultLoc,
	}
}

// Generate creates the cleaning for a booking's checkout day, linking the
// two bidirectionally. It returns (cleaning, false, nil) without creating
// anything when a non-cancelled cleaning already exists for the
// property+day (the existing one is linked up if orphaned) and
// (nil, false, nil) when the day is excluded.
func (g *Generator) Generate(ctx context.Context, b *models.Booking, p *models.Property) (*models.Cleaning, bool, error) {
	day := b.CheckoutDay(p.Location(g.defaultLoc))

	excluded, err := g.exclusions.Exists(ctx, p.ID, day, b.Source)
	if err != nil {
		return nil, false, fmt.Errorf("checking exclusion: %w", err)
	}
	if excluded {
		log.Debug().Str("property_id", p.ID).Str("day", day).Msg("Cleaning suppressed by exclusion")
		return nil, false, nil
	}

	existing, err := g.cleanings.GetActiveByDay(ctx, p.ID, day)
	if err != nil {
		return nil, false, fmt.Errorf("checking existing cleaning: %w", err)
	}
	if existing != nil {
		if err := g.link(ctx, b, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	guests := p.MaxGuests
	if b.GuestsCount != nil && *b.GuestsCount > 0 {
		guests = *b.GuestsCount
	}

	c := &models.Cleaning{
		PropertyID:    p.ID,
		BookingID:     &b.ID,
		ScheduledDate: day,
		GuestsCount:   guests,
		Price:         g.pricing.Price(p, day, guests),
		Status:        models.CleaningStatusScheduled,
	}

	if err := g.cleanings.Create(ctx, c); err != nil {
		return nil, false, fmt.Errorf("creating cleaning: %w", err)
	}

	b.CleaningID = &c.ID
	if err := g.bookings.Update(ctx, b); err != nil {
		return nil, false, fmt.Errorf("linking booking to cleaning: %w", err)
	}

	return c, true, nil
}

// link attaches an existing cleaning and booking to each other where either
// side of the link is missing. Overridden price/guests on the cleaning are
// left untouched.
func (g *Generator) link(ctx context.Context, b *models.Booking, c *models.Cleaning) error {
	if c.BookingID == nil {
		c.BookingID = &b.ID
		if err := g.cleanings.Update(ctx, c); err != nil {
			return fmt.Errorf("linking cleaning to booking: %w", err)
		}
	}
	if b.CleaningID == nil || *b.CleaningID != c.ID {
		b.CleaningID = &c.ID
		if err := g.bookings.Update(ctx, b); err != nil {
			return fmt.Errorf("linking booking to cleaning: %w", err)
		}
	}
	return nil
}
