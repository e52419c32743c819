package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaops/backend/internal/storage/models"
)

func testCatalog() *Catalog {
	categories := []models.InventoryCategory{
		{ID: "cat-bed", Key: models.CategoryBedLinen, Name: "Bed linen"},
		{ID: "cat-bath", Key: models.CategoryBathLinen, Name: "Bath linen"},
		{ID: "cat-supplies", Key: models.CategorySupplies, Name: "Cleaning supplies"},
	}
	items := []models.InventoryItem{
		{ID: "i-double", Key: models.ItemDoubleSheetSet, Name: "Double sheet set", CategoryID: "cat-bed", IsSystem: true},
		{ID: "i-towel", Key: models.ItemTowelLarge, Name: "Large towel", CategoryID: "cat-bath", IsSystem: true},
		{ID: "i-soap", Key: "dish_soap", Name: "Dish soap", CategoryID: "cat-supplies", IsSystem: false},
		{ID: "i-orphan-linen", Key: "federa_extra", Name: "Federa ricamata", CategoryID: "cat-gone", IsSystem: false},
		{ID: "i-orphan-other", Key: "welcome_kit", Name: "Welcome kit", CategoryID: "cat-gone", IsSystem: false},
	}
	return NewCatalog(items, categories)
}

func TestCatalogResolve(t *testing.T) {
	c := testCatalog()

	t.Run("resolves system keys", func(t *testing.T) {
		id, err := c.Resolve(models.ItemDoubleSheetSet)
		require.NoError(t, err)
		assert.Equal(t, "i-double", id)
	})

	t.Run("unknown key is unresolved", func(t *testing.T) {
		_, err := c.Resolve("no_such_key")
		assert.ErrorIs(t, err, ErrItemUnresolved)
	})

	t.Run("non-system item is rejected", func(t *testing.T) {
		_, err := c.Resolve("dish_soap")
		assert.ErrorIs(t, err, ErrItemUnresolved)
	})
}

func TestCatalogIsLinen(t *testing.T) {
	c := testCatalog()

	t.Run("category is authoritative", func(t *testing.T) {
		assert.True(t, c.IsLinen("i-double"))
		assert.True(t, c.IsLinen("i-towel"))
		assert.False(t, c.IsLinen("i-soap"))
	})

	t.Run("keyword fallback for orphaned category links", func(t *testing.T) {
		assert.True(t, c.IsLinen("i-orphan-linen"))
		assert.False(t, c.IsLinen("i-orphan-other"))
	})

	t.Run("unknown item is not linen", func(t *testing.T) {
		assert.False(t, c.IsLinen("i-missing"))
	})
}
