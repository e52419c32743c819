package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/casaops/backend/internal/storage/models"
)

// InventoryRepository provides data access for the inventory catalog.
type InventoryRepository struct {
	BaseRepository
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// CreateCategory inserts an inventory category.
func (r *InventoryRepository) CreateCategory(ctx context.Context, c *models.InventoryCategory) error {
	if c.ID == "" {
		c.ID = GenerateID()
	}
	c.CreatedAt = r.Now()

	if err := Validate(c); err != nil {
		return err
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO inventory_categories (id, key, name, created_at) VALUES (?, ?, ?, ?)
	`, c.ID, c.Key, c.Name, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}

	return nil
}

// GetCategoryByKey retrieves a category by its stable key. Returns nil when
// not found.
func (r *InventoryRepository) GetCategoryByKey(ctx context.Context, key string) (*models.InventoryCategory, error) {
	c := &models.InventoryCategory{}
	err := r.DB().QueryRowContext(ctx,
		`SELECT id, key, name, created_at FROM inventory_categories WHERE key = ?`, key).Scan(
		&c.ID, &c.Key, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying category: %w", err)
	}
	return c, nil
}

// ListCategories retrieves all inventory categories.
func (r *InventoryRepository) ListCategories(ctx context.Context) ([]models.InventoryCategory, error) {
	rows, err := r.DB().QueryContext(ctx,
		`SELECT id, key, name, created_at FROM inventory_categories ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []models.InventoryCategory
	for rows.Next() {
		var c models.InventoryCategory
		if err := rows.Scan(&c.ID, &c.Key, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// CreateItem inserts an inventory item.
func (r *InventoryRepository) CreateItem(ctx context.Context, i *models.InventoryItem) error {
	if i.ID == "" {
		i.ID = GenerateID()
	}
	i.CreatedAt = r.Now()
	i.UpdatedAt = r.Now()

	if err := Validate(i); err != nil {
		return err
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO inventory_items (id, key, name, category_id, is_system, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, i.ID, i.Key, i.Name, i.CategoryID, i.IsSystem, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}

	return nil
}

// GetItemByKey retrieves an item by its stable key. Returns nil when not found.
func (r *InventoryRepository) GetItemByKey(ctx context.Context, key string) (*models.InventoryItem, error) {
	i := &models.InventoryItem{}
	err := r.DB().QueryRowContext(ctx, `
		SELECT id, key, name, category_id, is_system, created_at, updated_at
		FROM inventory_items WHERE key = ?
	`, key).Scan(&i.ID, &i.Key, &i.Name, &i.CategoryID, &i.IsSystem, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return i, nil
}

// GetItemByID retrieves an item by ID. Returns nil when not found.
func (r *InventoryRepository) GetItemByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	i := &models.InventoryItem{}
	err := r.DB().QueryRowContext(ctx, `
		SELECT id, key, name, category_id, is_system, created_at, updated_at
		FROM inventory_items WHERE id = ?
	`, id).Scan(&i.ID, &i.Key, &i.Name, &i.CategoryID, &i.IsSystem, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return i, nil
}

// ListItems retrieves all inventory items.
func (r *InventoryRepository) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, key, name, category_id, is_system, created_at, updated_at
		FROM inventory_items ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []models.InventoryItem
	for rows.Next() {
		var i models.InventoryItem
		if err := rows.Scan(&i.ID, &i.Key, &i.Name, &i.CategoryID, &i.IsSystem, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, i)
	}

	return items, rows.Err()
}

// UpdateItem persists category/flag repairs on an item.
func (r *InventoryRepository) UpdateItem(ctx context.Context, i *models.InventoryItem) error {
	i.UpdatedAt = r.Now()

	if err := Validate(i); err != nil {
		return err
	}

	_, err := r.DB().ExecContext(ctx, `
		UPDATE inventory_items SET name = ?, category_id = ?, is_system = ?, updated_at = ?
		WHERE id = ?
	`, i.Name, i.CategoryID, i.IsSystem, i.UpdatedAt, i.ID)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}

	return nil
}
