package sync

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

type reconcilerFixture struct {
	reconciler *Reconciler
	bookings   *storage.BookingRepository
	cleanings  *storage.CleaningRepository
	exclusions *storage.ExclusionRepository
	properties *storage.PropertyRepository
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	db, err := storage.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))

	bookings := storage.NewBookingRepository(db)
	cleanings := storage.NewCleaningRepository(db)
	exclusions := storage.NewExclusionRepository(db)

	return &reconcilerFixture{
		reconciler: NewReconciler(bookings, cleanings, exclusions, nil),
		bookings:   bookings,
		cleanings:  cleanings,
		exclusions: exclusions,
		properties: storage.NewPropertyRepository(db),
	}
}

func (f *reconcilerFixture) property(t *testing.T) *models.Property {
	t.Helper()
	p := &models.Property{
		Name:      "Trastevere Loft",
		Status:    models.PropertyStatusActive,
		Timezone:  "Europe/Rome",
		MaxGuests: 4,
	}
	require.NoError(t, f.properties.Create(context.Background(), p))
	return p
}

func futureDate(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, days).Truncate(24 * time.Hour)
}

func event(uid string, checkIn, checkOut time.Time) models.ExternalEvent {
	return models.ExternalEvent{
		UID:       uid,
		Source:    "airbnb",
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		GuestName: "Reserved",
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("creates bookings for new events", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		events := []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(9)),
			event("uid-2", futureDate(12), futureDate(14)),
		}

		report, err := f.reconciler.Reconcile(ctx, p, "airbnb", events)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Created)
		assert.Zero(t, report.Updated)
		assert.Zero(t, report.Cancelled)

		stored, err := f.bookings.ListActiveBySource(ctx, p.ID, "airbnb")
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("second run with same events changes nothing", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		events := []models.ExternalEvent{event("uid-1", futureDate(5), futureDate(9))}

		_, err := f.reconciler.Reconcile(ctx, p, "airbnb", events)
		require.NoError(t, err)

		report, err := f.reconciler.Reconcile(ctx, p, "airbnb", events)
		require.NoError(t, err)
		assert.Zero(t, report.Created)
		assert.Zero(t, report.Updated)
		assert.Zero(t, report.Cancelled)
	})

	t.Run("date drift updates the booking", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		_, err := f.reconciler.Reconcile(ctx, p, "airbnb", []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(9)),
		})
		require.NoError(t, err)

		report, err := f.reconciler.Reconcile(ctx, p, "airbnb", []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(10)),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Updated)

		stored, err := f.bookings.ListActiveBySource(ctx, p.ID, "airbnb")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.True(t, stored[0].CheckOut.Equal(futureDate(10)))
	})

	t.Run("checkout move shifts a scheduled cleaning", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		_, err := f.reconciler.Reconcile(ctx, p, "airbnb", []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(9)),
		})
		require.NoError(t, err)

		stored, err := f.bookings.ListActiveBySource(ctx, p.ID, "airbnb")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		b := stored[0]

		c := &models.Cleaning{
			PropertyID:    p.ID,
			BookingID:     &b.ID,
			ScheduledDate: b.CheckoutDay(p.Location(nil)),
			Status:        models.CleaningStatusScheduled,
			Price:         decimal.NewFromInt(60),
		}
		require.NoError(t, f.cleanings.Create(ctx, c))
		b.CleaningID = &c.ID
		require.NoError(t, f.bookings.Update(ctx, &b))

		_, err = f.reconciler.Reconcile(ctx, p, "airbnb", []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(11)),
		})
		require.NoError(t, err)

		shifted, err := f.cleanings.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.NormalizeDay(futureDate(11), p.Location(nil)), shifted.ScheduledDate)
		assert.False(t, shifted.NeedsReview)
	})

	t.Run("checkout move flags an in-progress cleaning", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		_, err := f.reconciler.Reconcile(ctx, p, "airbnb", []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(9)),
		})
		require.NoError(t, err)

		stored, err := f.bookings.ListActiveBySource(ctx, p.ID, "airbnb")
		require.NoError(t, err)
		b := stored[0]

		c := &models.Cleaning{
			PropertyID:    p.ID,
			BookingID:     &b.ID,
			ScheduledDate: b.CheckoutDay(p.Location(nil)),
			Status:        models.CleaningStatusInProgress,
			Price:         decimal.NewFromInt(60),
		}
		require.NoError(t, f.cleanings.Create(ctx, c))
		b.CleaningID = &c.ID
		require.NoError(t, f.bookings.Update(ctx, &b))

		oldDay := c.ScheduledDate
		_, err = f.reconciler.Reconcile(ctx, p, "airbnb", []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(11)),
		})
		require.NoError(t, err)

		flagged, err := f.cleanings.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, oldDay, flagged.ScheduledDate)
		assert.True(t, flagged.NeedsReview)
		require.NotNil(t, flagged.ReviewNote)
	})

	t.Run("missing future event cancels booking and scheduled cleaning", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		_, err := f.reconciler.Reconcile(ctx, p, "airbnb", []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(9)),
		})
		require.NoError(t, err)

		stored, err := f.bookings.ListActiveBySource(ctx, p.ID, "airbnb")
		require.NoError(t, err)
		b := stored[0]

		c := &models.Cleaning{
			PropertyID:    p.ID,
			BookingID:     &b.ID,
			ScheduledDate: b.CheckoutDay(p.Location(nil)),
			Status:        models.CleaningStatusScheduled,
			Price:         decimal.NewFromInt(60),
		}
		require.NoError(t, f.cleanings.Create(ctx, c))
		b.CleaningID = &c.ID
		require.NoError(t, f.bookings.Update(ctx, &b))

		report, err := f.reconciler.Reconcile(ctx, p, "airbnb", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Cancelled)

		cancelled, err := f.bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

		cleaning, err := f.cleanings.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CleaningStatusCancelled, cleaning.Status)
	})

	t.Run("missing past booking completes instead of cancelling", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		past := &models.Booking{
			PropertyID: p.ID,
			Source:     "airbnb",
			CheckIn:    time.Now().UTC().AddDate(0, 0, -10),
			CheckOut:   time.Now().UTC().AddDate(0, 0, -6),
			Status:     models.BookingStatusActive,
		}
		require.NoError(t, f.bookings.Create(ctx, past))

		report, err := f.reconciler.Reconcile(ctx, p, "airbnb", nil)
		require.NoError(t, err)
		assert.Zero(t, report.Cancelled)

		aged, err := f.bookings.GetByID(ctx, past.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCompleted, aged.Status)
	})

	t.Run("UID-less events match by checkout day", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		_, err := f.reconciler.Reconcile(ctx, p, "direct", []models.ExternalEvent{
			event("", futureDate(5), futureDate(9)),
		})
		require.NoError(t, err)

		report, err := f.reconciler.Reconcile(ctx, p, "direct", []models.ExternalEvent{
			event("", futureDate(5), futureDate(9)),
		})
		require.NoError(t, err)
		assert.Zero(t, report.Created)

		stored, err := f.bookings.ListActiveBySource(ctx, p.ID, "direct")
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("excluded day suppresses creation and survives re-sync", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		day := models.NormalizeDay(futureDate(9), p.Location(nil))
		require.NoError(t, f.exclusions.Create(ctx, &models.SyncExclusion{
			PropertyID: p.ID,
			Day:        day,
			Reason:     "manually cancelled",
		}))

		events := []models.ExternalEvent{event("uid-1", futureDate(5), futureDate(9))}

		for i := 0; i < 3; i++ {
			report, err := f.reconciler.Reconcile(ctx, p, "airbnb", events)
			require.NoError(t, err)
			assert.Zero(t, report.Created)
			assert.Equal(t, 1, report.Skipped)
		}

		stored, err := f.bookings.ListActiveBySource(ctx, p.ID, "airbnb")
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("source-scoped exclusion leaves other sources alone", func(t *testing.T) {
		f := newReconcilerFixture(t)
		p := f.property(t)

		src := "airbnb"
		day := models.NormalizeDay(futureDate(9), p.Location(nil))
		require.NoError(t, f.exclusions.Create(ctx, &models.SyncExclusion{
			PropertyID: p.ID,
			Day:        day,
			Source:     &src,
		}))

		report, err := f.reconciler.Reconcile(ctx, p, "airbnb", []models.ExternalEvent{
			event("uid-1", futureDate(5), futureDate(9)),
		})
		require.NoError(t, err)
		assert.Zero(t, report.Created)

		other := event("uid-2", futureDate(5), futureDate(9))
		other.Source = "booking"
		report, err = f.reconciler.Reconcile(ctx, p, "booking", []models.ExternalEvent{other})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Created)
	})
}

func TestReconcileDefaultTimezone(t *testing.T) {
	ctx := context.Background()
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	f := newReconcilerFixture(t)
	f.reconciler = NewReconciler(f.bookings, f.cleanings, f.exclusions, rome)

	p := &models.Property{
		Name:      "Navigli Studio",
		Status:    models.PropertyStatusActive,
		MaxGuests: 2,
	}
	require.NoError(t, f.properties.Create(ctx, p))

	// A timed export at 23:00 UTC and a date-only export of the same
	// checkout collapse onto one booking only when the fallback zone
	// buckets both onto the same local day.
	timed := futureDate(9).Add(-1 * time.Hour)
	_, err = f.reconciler.Reconcile(ctx, p, "direct", []models.ExternalEvent{
		event("", futureDate(5), timed),
	})
	require.NoError(t, err)

	report, err := f.reconciler.Reconcile(ctx, p, "direct", []models.ExternalEvent{
		event("", futureDate(5), futureDate(9)),
	})
	require.NoError(t, err)
	assert.Zero(t, report.Created)

	stored, err := f.bookings.ListActiveBySource(ctx, p.ID, "direct")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.NormalizeDay(futureDate(9), rome), stored[0].CheckoutDay(rome))
}
