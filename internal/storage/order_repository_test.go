package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaops/backend/internal/storage/models"
)

func newOrderRepoFixture(t *testing.T) (*OrderRepository, string) {
	t.Helper()
	db, err := NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, RunMigrations(db))

	p := &models.Property{
		Name:   "Trastevere Loft",
		Status: models.PropertyStatusActive,
	}
	require.NoError(t, NewPropertyRepository(db).Create(context.Background(), p))
	return NewOrderRepository(db), p.ID
}

func TestOrderCreateValidation(t *testing.T) {
	ctx := context.Background()
	repo, propertyID := newOrderRepoFixture(t)

	t.Run("negative item quantity is rejected at the write boundary", func(t *testing.T) {
		o := &models.LaundryOrder{
			PropertyID:    propertyID,
			ScheduledDate: "2026-07-15",
			Items:         []models.OrderItem{{ItemID: "item-1", Quantity: -1}},
		}
		err := repo.Create(ctx, o)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Quantity")
	})

	t.Run("item without an ID is rejected", func(t *testing.T) {
		o := &models.LaundryOrder{
			PropertyID:    propertyID,
			ScheduledDate: "2026-07-15",
			Items:         []models.OrderItem{{Quantity: 2}},
		}
		require.Error(t, repo.Create(ctx, o))
	})

	t.Run("zero quantity and valid lines pass", func(t *testing.T) {
		o := &models.LaundryOrder{
			PropertyID:    propertyID,
			ScheduledDate: "2026-07-15",
			Items: []models.OrderItem{
				{ItemID: "item-1", Quantity: 0},
				{ItemID: "item-2", Quantity: 3},
			},
		}
		require.NoError(t, repo.Create(ctx, o))

		stored, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, stored.Status)
		assert.Len(t, stored.Items, 2)
	})

	t.Run("negative quantity is rejected on update too", func(t *testing.T) {
		o := &models.LaundryOrder{
			PropertyID:    propertyID,
			ScheduledDate: "2026-07-16",
			Items:         []models.OrderItem{{ItemID: "item-1", Quantity: 1}},
		}
		require.NoError(t, repo.Create(ctx, o))

		o.Items[0].Quantity = -2
		require.Error(t, repo.Update(ctx, o))
	})
}
