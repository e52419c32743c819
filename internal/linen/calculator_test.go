package linen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/casaops/backend/internal/storage/models"
)

func TestCalculate(t *testing.T) {
	rules := DefaultRules()

	t.Run("matrimoniale plus singolo for three guests", func(t *testing.T) {
		beds := []models.Bed{
			{Type: models.BedMatrimoniale},
			{Type: models.BedSingolo},
		}
		req := Calculate(rules, beds, 3, 1)

		assert.Equal(t, map[string]int{
			models.ItemDoubleSheetSet: 1,
			models.ItemSingleSheetSet: 1,
			models.ItemPillowcase:     3,
		}, req.Bed)
		assert.Equal(t, map[string]int{
			models.ItemTowelLarge: 3,
			models.ItemTowelFace:  3,
			models.ItemTowelSmall: 3,
			models.ItemBathMat:    1,
		}, req.Bath)
	})

	t.Run("beds beyond capacity are not linened", func(t *testing.T) {
		beds := []models.Bed{
			{Type: models.BedMatrimoniale},
			{Type: models.BedSingolo},
			{Type: models.BedSingolo},
		}
		// Two guests fit in the matrimoniale; the singoli stay unmade.
		req := Calculate(rules, beds, 2, 1)

		assert.Equal(t, map[string]int{
			models.ItemDoubleSheetSet: 1,
			models.ItemPillowcase:     2,
		}, req.Bed)
	})

	t.Run("divano letto counts as matrimoniale", func(t *testing.T) {
		req := Calculate(rules, []models.Bed{{Type: models.BedDivanoLetto}}, 2, 1)
		assert.Equal(t, map[string]int{
			models.ItemDoubleSheetSet: 1,
			models.ItemPillowcase:     2,
		}, req.Bed)
	})

	t.Run("castello takes two single sets", func(t *testing.T) {
		req := Calculate(rules, []models.Bed{{Type: models.BedCastello}}, 2, 0)
		assert.Equal(t, map[string]int{
			models.ItemSingleSheetSet: 2,
			models.ItemPillowcase:     2,
		}, req.Bed)
	})

	t.Run("zero guests produces no bed or guest linen", func(t *testing.T) {
		req := Calculate(rules, []models.Bed{{Type: models.BedMatrimoniale}}, 0, 2)
		assert.Empty(t, req.Bed)
		// Bath mats are per bathroom, independent of guests.
		assert.Equal(t, map[string]int{models.ItemBathMat: 2}, req.Bath)
	})

	t.Run("unknown bed type is skipped", func(t *testing.T) {
		beds := []models.Bed{
			{Type: models.BedType("futon")},
			{Type: models.BedSingolo},
		}
		req := Calculate(rules, beds, 1, 0)
		assert.Equal(t, map[string]int{
			models.ItemSingleSheetSet: 1,
			models.ItemPillowcase:     1,
		}, req.Bed)
	})

	t.Run("deterministic", func(t *testing.T) {
		beds := []models.Bed{
			{Type: models.BedMatrimoniale},
			{Type: models.BedSingolo},
		}
		first := Calculate(rules, beds, 3, 1)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Calculate(rules, beds, 3, 1))
		}
	})
}

func TestForProperty(t *testing.T) {
	rules := DefaultRules()

	p := &models.Property{
		Beds:      []models.Bed{{Type: models.BedMatrimoniale}, {Type: models.BedSingolo}},
		Bathrooms: 1,
		LinenOverrides: map[int]map[string]int{
			3: {models.ItemDoubleSheetSet: 2, models.ItemPillowcase: 4},
		},
	}

	t.Run("override replaces bed linen for matching guest count", func(t *testing.T) {
		req := ForProperty(rules, p, 3)
		assert.Equal(t, map[string]int{
			models.ItemDoubleSheetSet: 2,
			models.ItemPillowcase:     4,
		}, req.Bed)
		// Bath linen is always computed.
		assert.Equal(t, 3, req.Bath[models.ItemTowelLarge])
		assert.Equal(t, 1, req.Bath[models.ItemBathMat])
	})

	t.Run("no override for other guest counts", func(t *testing.T) {
		req := ForProperty(rules, p, 2)
		assert.Equal(t, map[string]int{
			models.ItemDoubleSheetSet: 1,
			models.ItemPillowcase:     2,
		}, req.Bed)
	})
}

func TestRequirementKeys(t *testing.T) {
	req := Requirement{
		Bed:  map[string]int{models.ItemPillowcase: 3, models.ItemDoubleSheetSet: 1},
		Bath: map[string]int{models.ItemTowelLarge: 2, models.ItemBathMat: 1},
	}

	items := req.Keys()
	assert.Equal(t, []models.OrderItem{
		{ItemID: models.ItemBathMat, Quantity: 1},
		{ItemID: models.ItemDoubleSheetSet, Quantity: 1},
		{ItemID: models.ItemPillowcase, Quantity: 3},
		{ItemID: models.ItemTowelLarge, Quantity: 2},
	}, items)
}
