// Package inventory manages the catalog of laundry and cleaning items.
//
// A small fixed set of system items (sheet sets, pillowcases, towels, bath
// mats) must always exist with stable keys and correct categories: linen
// computation fails hard without them.
package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
)

// systemCategories is the fixed category set.
var systemCategories = []struct {
	Key  string
	Name string
}{
	{models.CategoryBedLinen, "Bed linen"},
	{models.CategoryBathLinen, "Bath linen"},
	{models.CategorySupplies, "Cleaning supplies"},
}

// systemItems is the fixed system item set the linen calculator and order
// generator depend on.
var systemItems = []struct {
	Key      string
	Name     string
	Category string
}{
	{models.ItemDoubleSheetSet, "Double sheet set", models.CategoryBedLinen},
	{models.ItemSingleSheetSet, "Single sheet set", models.CategoryBedLinen},
	{models.ItemPillowcase, "Pillowcase", models.CategoryBedLinen},
	{models.ItemTowelLarge, "Large towel", models.CategoryBathLinen},
	{models.ItemTowelFace, "Face towel", models.CategoryBathLinen},
	{models.ItemTowelSmall, "Small towel", models.CategoryBathLinen},
	{models.ItemBathMat, "Bath mat", models.CategoryBathLinen},
}

// Service maintains the inventory catalog.
type Service struct {
	repo *storage.InventoryRepository
}

// NewService creates an inventory service.
func NewService(repo *storage.InventoryRepository) *Service {
	return &Service{repo: repo}
}

// EnsureSystemItems recreates missing system categories and items and
// repairs category or flag drift on existing ones. It is idempotent and is
// invoked explicitly (orchestrator setup phase or the maintenance endpoint),
// never as a side effect of a read.
func (s *Service) EnsureSystemItems(ctx context.Context) (int, error) {
	repaired := 0

	categoryIDs := make(map[string]string, len(systemCategories))
	for _, sc := range systemCategories {
		cat, err := s.repo.GetCategoryByKey(ctx, sc.Key)
		if err != nil {
			return repaired, fmt.Errorf("checking category %s: %w", sc.Key, err)
		}
		if cat == nil {
			cat = &models.InventoryCategory{Key: sc.Key, Name: sc.Name}
			if err := s.repo.CreateCategory(ctx, cat); err != nil {
				return repaired, fmt.Errorf("creating category %s: %w", sc.Key, err)
			}
			log.Info().Str("category", sc.Key).Msg("Recreated missing inventory category")
			repaired++
		}
		categoryIDs[sc.Key] = cat.ID
	}

	for _, si := range systemItems {
		item, err := s.repo.GetItemByKey(ctx, si.Key)
		if err != nil {
			return repaired, fmt.Errorf("checking item %s: %w", si.Key, err)
		}

		wantCategory := categoryIDs[si.Category]

		if item == nil {
			item = &models.InventoryItem{
				Key:        si.Key,
				Name:       si.Name,
				CategoryID: wantCategory,
				IsSystem:   true,
			}
			if err := s.repo.CreateItem(ctx, item); err != nil {
				return repaired, fmt.Errorf("creating item %s: %w", si.Key, err)
			}
			log.Info().Str("item", si.Key).Msg("Recreated missing system inventory item")
			repaired++
			continue
		}

		if item.CategoryID != wantCategory || !item.IsSystem {
			item.CategoryID = wantCategory
			item.IsSystem = true
			if err := s.repo.UpdateItem(ctx, item); err != nil {
				return repaired, fmt.Errorf("repairing item %s: %w", si.Key, err)
			}
			log.Info().Str("item", si.Key).Msg("Repaired system inventory item")
			repaired++
		}
	}

	return repaired, nil
}

// LoadCatalog snapshots the catalog for resolution and classification.
func (s *Service) LoadCatalog(ctx context.Context) (*Catalog, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	return NewCatalog(items, categories), nil
}
