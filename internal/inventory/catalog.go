package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casaops/backend/internal/storage/models"
)

// ErrItemUnresolved is returned when a linen key cannot be resolved to a
// system inventory item. This is a fatal configuration error for the
// affected cleaning, never silently dropped.
var ErrItemUnresolved = errors.New("system inventory item unresolved")

// linenKeywords is the name-match fallback used to classify items whose
// category link is missing or corrupted.
var linenKeywords = []string{
	"sheet", "pillow", "towel", "mat",
	"lenzuol", "federa", "asciugaman", "tappet",
}

// Catalog is an in-memory snapshot of the inventory used during a sync run.
type Catalog struct {
	byKey        map[string]models.InventoryItem
	byID         map[string]models.InventoryItem
	categoryByID map[string]models.InventoryCategory
}

// NewCatalog builds a catalog from item and category lists.
func NewCatalog(items []models.InventoryItem, categories []models.InventoryCategory) *Catalog {
	c := &Catalog{
		byKey:        make(map[string]models.InventoryItem, len(items)),
		byID:         make(map[string]models.InventoryItem, len(items)),
		categoryByID: make(map[string]models.InventoryCategory, len(categories)),
	}
	for _, i := range items {
		c.byKey[i.Key] = i
		c.byID[i.ID] = i
	}
	for _, cat := range categories {
		c.categoryByID[cat.ID] = cat
	}
	return c
}

// Resolve maps a linen key to its system inventory item id. Non-system
// matches are rejected: only the repaired system catalog may back linen
// orders.
func (c *Catalog) Resolve(key string) (string, error) {
	item, ok := c.byKey[key]
	if !ok {
		return "", fmt.Errorf("key %q: %w", key, ErrItemUnresolved)
	}
	if !item.IsSystem {
		return "", fmt.Errorf("key %q resolves to non-system item %s: %w", key, item.ID, ErrItemUnresolved)
	}
	return item.ID, nil
}

// IsLinen classifies an item id as bed/bath linen. Category id is
// authoritative; when the category link is missing the item name is matched
// against linen keywords as a fallback.
func (c *Catalog) IsLinen(itemID string) bool {
	item, ok := c.byID[itemID]
	if !ok {
		return false
	}

	if cat, ok := c.categoryByID[item.CategoryID]; ok {
		return cat.Key == models.CategoryBedLinen || cat.Key == models.CategoryBathLinen
	}

	name := strings.ToLower(item.Name)
	for _, kw := range linenKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
