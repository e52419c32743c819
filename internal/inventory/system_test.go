package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
)

func newTestService(t *testing.T) (*Service, *storage.InventoryRepository) {
	t.Helper()
	db, err := storage.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))

	repo := storage.NewInventoryRepository(db)
	return NewService(repo), repo
}

func TestEnsureSystemItems(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds empty catalog", func(t *testing.T) {
		svc, repo := newTestService(t)

		repaired, err := svc.EnsureSystemItems(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(systemCategories)+len(systemItems), repaired)

		for _, si := range systemItems {
			item, err := repo.GetItemByKey(ctx, si.Key)
			require.NoError(t, err)
			require.NotNil(t, item, si.Key)
			assert.True(t, item.IsSystem)
		}
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.EnsureSystemItems(ctx)
		require.NoError(t, err)

		repaired, err := svc.EnsureSystemItems(ctx)
		require.NoError(t, err)
		assert.Zero(t, repaired)
	})

	t.Run("repairs category drift", func(t *testing.T) {
		svc, repo := newTestService(t)

		_, err := svc.EnsureSystemItems(ctx)
		require.NoError(t, err)

		supplies, err := repo.GetCategoryByKey(ctx, models.CategorySupplies)
		require.NoError(t, err)

		item, err := repo.GetItemByKey(ctx, models.ItemPillowcase)
		require.NoError(t, err)
		item.CategoryID = supplies.ID
		item.IsSystem = false
		require.NoError(t, repo.UpdateItem(ctx, item))

		repaired, err := svc.EnsureSystemItems(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, repaired)

		fixed, err := repo.GetItemByKey(ctx, models.ItemPillowcase)
		require.NoError(t, err)
		assert.True(t, fixed.IsSystem)

		bedLinen, err := repo.GetCategoryByKey(ctx, models.CategoryBedLinen)
		require.NoError(t, err)
		assert.Equal(t, bedLinen.ID, fixed.CategoryID)
	})
}

func TestLoadCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureSystemItems(ctx)
	require.NoError(t, err)

	catalog, err := svc.LoadCatalog(ctx)
	require.NoError(t, err)

	id, err := catalog.Resolve(models.ItemBathMat)
	require.NoError(t, err)
	assert.True(t, catalog.IsLinen(id))
}
