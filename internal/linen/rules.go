// Package linen computes bed and bath linen requirements for a stay.
package linen

import "github.com/casaops/backend/internal/storage/models"

// BedRule describes how many guests a bed type hosts and what linen it takes.
type BedRule struct {
	Capacity int
	Linen    map[string]int // inventory key -> quantity
}

// RuleTable is the immutable linen rule configuration, built once at process
// start and passed explicitly into the calculator.
type RuleTable struct {
	Beds        map[models.BedType]BedRule
	PerGuest    map[string]int // bath linen per hosted guest
	PerBathroom map[string]int // bath linen per bathroom, guest-independent
}

// DefaultRules returns the fixed rule table:
// matrimoniale -> 1 double sheet set + 2 pillowcases, singolo -> 1 single
// sheet set + 1 pillowcase, divano-letto -> matrimoniale equivalent,
// castello -> 2 single sheet sets + 2 pillowcases; per guest 1 large + 1
// face + 1 small towel; per bathroom 1 bath mat.
func DefaultRules() *RuleTable {
	return &RuleTable{
		Beds: map[models.BedType]BedRule{
			models.BedMatrimoniale: {
				Capacity: 2,
				Linen:    map[string]int{models.ItemDoubleSheetSet: 1, models.ItemPillowcase: 2},
			},
			models.BedSingolo: {
				Capacity: 1,
				Linen:    map[string]int{models.ItemSingleSheetSet: 1, models.ItemPillowcase: 1},
			},
			models.BedDivanoLetto: {
				Capacity: 2,
				Linen:    map[string]int{models.ItemDoubleSheetSet: 1, models.ItemPillowcase: 2},
			},
			models.BedCastello: {
				Capacity: 2,
				Linen:    map[string]int{models.ItemSingleSheetSet: 2, models.ItemPillowcase: 2},
			},
		},
		PerGuest: map[string]int{
			models.ItemTowelLarge: 1,
			models.ItemTowelFace:  1,
			models.ItemTowelSmall: 1,
		},
		PerBathroom: map[string]int{
			models.ItemBathMat: 1,
		},
	}
}
