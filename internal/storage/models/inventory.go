package models

import "time"

// System inventory category keys. The linen calculator depends on these
// being present and correctly assigned.
const (
	CategoryBedLinen  = "bed_linen"
	CategoryBathLinen = "bath_linen"
	CategorySupplies  = "cleaning_supplies"
)

// System inventory item keys for linen resolution.
const (
	ItemDoubleSheetSet = "double_sheet_set"
	ItemSingleSheetSet = "single_sheet_set"
	ItemPillowcase     = "pillowcase"
	ItemTowelLarge     = "towel_large"
	ItemTowelFace      = "towel_face"
	ItemTowelSmall     = "towel_small"
	ItemBathMat        = "bath_mat"
)

// InventoryCategory groups inventory items.
type InventoryCategory struct {
	ID        string    `json:"id"`
	Key       string    `json:"key" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// InventoryItem is a catalog entry. System items carry a stable key and are
// repaired by the inventory maintenance pass if missing or corrupted.
type InventoryItem struct {
	ID         string    `json:"id"`
	Key        string    `json:"key" validate:"required"`
	Name       string    `json:"name" validate:"required"`
	CategoryID string    `json:"category_id"`
	IsSystem   bool      `json:"is_system"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
