package cleaning

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
)

type generatorFixture struct {
	generator  *Generator
	bookings   *storage.BookingRepository
	cleanings  *storage.CleaningRepository
	exclusions *storage.ExclusionRepository
	properties *storage.PropertyRepository
}

func newGeneratorFixture(t *testing.T) *generatorFixture {
	t.Helper()
	db, err := storage.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))

	bookings := storage.NewBookingRepository(db)
	cleanings := storage.NewCleaningRepository(db)
	exclusions := storage.NewExclusionRepository(db)

	return &generatorFixture{
		generator:  NewGenerator(cleanings, bookings, exclusions, NewBasePricing(decimal.NewFromInt(20)), nil),
		bookings:   bookings,
		cleanings:  cleanings,
		exclusions: exclusions,
		properties: storage.NewPropertyRepository(db),
	}
}

func (f *generatorFixture) property(t *testing.T) *models.Property {
	t.Helper()
	p := &models.Property{
		Name:          "Trastevere Loft",
		Status:        models.PropertyStatusActive,
		Timezone:      "Europe/Rome",
		MaxGuests:     4,
		Bathrooms:     1,
		CleaningPrice: decimal.NewFromInt(60),
		Beds:          []models.Bed{{Type: models.BedMatrimoniale}},
	}
	require.NoError(t, f.properties.Create(context.Background(), p))
	return p
}

func (f *generatorFixture) booking(t *testing.T, p *models.Property, checkOut time.Time, guests *int) *models.Booking {
	t.Helper()
	b := &models.Booking{
		PropertyID:  p.ID,
		Source:      "airbnb",
		CheckIn:     checkOut.AddDate(0, 0, -4),
		CheckOut:    checkOut,
		GuestsCount: guests,
		Status:      models.BookingStatusActive,
	}
	require.NoError(t, f.bookings.Create(context.Background(), b))
	return b
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	checkOut := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	t.Run("creates scheduled cleaning linked to the booking", func(t *testing.T) {
		f := newGeneratorFixture(t)
		p := f.property(t)
		guests := 2
		b := f.booking(t, p, checkOut, &guests)

		c, created, err := f.generator.Generate(ctx, b, p)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, models.CleaningStatusScheduled, c.Status)
		assert.Equal(t, "2026-07-15", c.ScheduledDate)
		assert.Equal(t, 2, c.GuestsCount)
		assert.True(t, c.Price.Equal(decimal.NewFromInt(60)))
		require.NotNil(t, c.BookingID)
		assert.Equal(t, b.ID, *c.BookingID)

		stored, err := f.bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.CleaningID)
		assert.Equal(t, c.ID, *stored.CleaningID)
	})

	t.Run("falls back to max guests when booking has no count", func(t *testing.T) {
		f := newGeneratorFixture(t)
		p := f.property(t)
		b := f.booking(t, p, checkOut, nil)

		c, _, err := f.generator.Generate(ctx, b, p)
		require.NoError(t, err)
		assert.Equal(t, p.MaxGuests, c.GuestsCount)
	})

	t.Run("applies holiday surcharge", func(t *testing.T) {
		f := newGeneratorFixture(t)
		p := f.property(t)
		b := f.booking(t, p, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), nil)

		c, _, err := f.generator.Generate(ctx, b, p)
		require.NoError(t, err)
		assert.True(t, c.Price.Equal(decimal.NewFromInt(80)), "expected 60 + 20 surcharge, got %s", c.Price)
	})

	t.Run("reuses existing cleaning for the same day", func(t *testing.T) {
		f := newGeneratorFixture(t)
		p := f.property(t)
		first := f.booking(t, p, checkOut, nil)
		second := f.booking(t, p, checkOut, nil)

		c1, created, err := f.generator.Generate(ctx, first, p)
		require.NoError(t, err)
		require.True(t, created)

		c2, created, err := f.generator.Generate(ctx, second, p)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, c1.ID, c2.ID)
	})

	t.Run("links orphaned cleaning back to the booking", func(t *testing.T) {
		f := newGeneratorFixture(t)
		p := f.property(t)

		orphan := &models.Cleaning{
			PropertyID:    p.ID,
			ScheduledDate: "2026-07-15",
			Status:        models.CleaningStatusScheduled,
			Price:         decimal.NewFromInt(60),
		}
		require.NoError(t, f.cleanings.Create(ctx, orphan))

		b := f.booking(t, p, checkOut, nil)
		c, created, err := f.generator.Generate(ctx, b, p)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, orphan.ID, c.ID)
		require.NotNil(t, c.BookingID)
		assert.Equal(t, b.ID, *c.BookingID)
	})

	t.Run("excluded day creates nothing", func(t *testing.T) {
		f := newGeneratorFixture(t)
		p := f.property(t)
		b := f.booking(t, p, checkOut, nil)

		require.NoError(t, f.exclusions.Create(ctx, &models.SyncExclusion{
			PropertyID: p.ID,
			Day:        "2026-07-15",
			Reason:     "owner stay",
		}))

		c, created, err := f.generator.Generate(ctx, b, p)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Nil(t, c)
	})

	t.Run("cancelled cleaning does not block a new one", func(t *testing.T) {
		f := newGeneratorFixture(t)
		p := f.property(t)

		cancelled := &models.Cleaning{
			PropertyID:    p.ID,
			ScheduledDate: "2026-07-15",
			Status:        models.CleaningStatusCancelled,
			Price:         decimal.NewFromInt(60),
		}
		require.NoError(t, f.cleanings.Create(ctx, cancelled))

		b := f.booking(t, p, checkOut, nil)
		c, created, err := f.generator.Generate(ctx, b, p)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, cancelled.ID, c.ID)
	})
}

func TestBasePricing(t *testing.T) {
	pricing := NewBasePricing(decimal.NewFromInt(15))
	p := &models.Property{CleaningPrice: decimal.NewFromInt(50)}

	assert.True(t, pricing.Price(p, "2026-03-10", 2).Equal(decimal.NewFromInt(50)))
	assert.True(t, pricing.Price(p, "2026-12-25", 2).Equal(decimal.NewFromInt(65)))
	assert.True(t, pricing.Price(p, "2027-01-01", 2).Equal(decimal.NewFromInt(65)), "fixed-date holidays recur every year")
}
