package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/casaops/backend/internal/storage/models"
)

// OrderRepository provides data access for laundry orders.
type OrderRepository struct {
	BaseRepository
}

// NewOrderRepository creates a new laundry order repository.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const orderColumns = `id, property_id, cleaning_id, status, rider_id, items,
       pickup_completed, pickup_items, pickup_from_orders, scheduled_date,
       created_at, updated_at`

// Create inserts a new laundry order.
func (r *OrderRepository) Create(ctx context.Context, o *models.LaundryOrder) error {
	if o.ID == "" {
		o.ID = GenerateID()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	o.CreatedAt = r.Now()
	o.UpdatedAt = r.Now()

	if err := Validate(o); err != nil {
		return err
	}

	items, pickupItems, pickupFrom, err := encodeOrderJSON(o)
	if err != nil {
		return err
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO laundry_orders (
			id, property_id, cleaning_id, status, rider_id, items,
			pickup_completed, pickup_items, pickup_from_orders, scheduled_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID, o.PropertyID, o.CleaningID, o.Status, o.RiderID, items,
		o.PickupCompleted, pickupItems, pickupFrom, o.ScheduledDate,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID. Returns nil when not found.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.LaundryOrder, error) {
	row := r.DB().QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM laundry_orders WHERE id = ?`, id)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}
	return o, nil
}

// ListPendingPickup retrieves the delivered, not-yet-collected orders for a
// property: the inputs of the pickup aggregation.
func (r *OrderRepository) ListPendingPickup(ctx context.Context, propertyID string) ([]models.LaundryOrder, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM laundry_orders
		 WHERE property_id = ? AND status = ? AND pickup_completed = 0
		 ORDER BY created_at`,
		propertyID, models.OrderStatusDelivered)
}

// GetOpenByProperty retrieves the oldest pending order for a property, the
// carrier of the recomputed pickup aggregate. Returns nil when none exists.
func (r *OrderRepository) GetOpenByProperty(ctx context.Context, propertyID string) (*models.LaundryOrder, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM laundry_orders
		WHERE property_id = ? AND status = ?
		ORDER BY created_at LIMIT 1
	`, propertyID, models.OrderStatusPending)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying open order: %w", err)
	}
	return o, nil
}

// ListActive retrieves every non-cancelled order, used by the duplicate
// resolver.
func (r *OrderRepository) ListActive(ctx context.Context) ([]models.LaundryOrder, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM laundry_orders WHERE status != ? ORDER BY created_at`,
		models.OrderStatusCancelled)
}

// Update persists changes to an order.
func (r *OrderRepository) Update(ctx context.Context, o *models.LaundryOrder) error {
	o.UpdatedAt = r.Now()

	if err := Validate(o); err != nil {
		return err
	}

	items, pickupItems, pickupFrom, err := encodeOrderJSON(o)
	if err != nil {
		return err
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE laundry_orders SET
			cleaning_id = ?, status = ?, rider_id = ?, items = ?,
			pickup_completed = ?, pickup_items = ?, pickup_from_orders = ?,
			scheduled_date = ?, updated_at = ?
		WHERE id = ?
	`,
		o.CleaningID, o.Status, o.RiderID, items,
		o.PickupCompleted, pickupItems, pickupFrom,
		o.ScheduledDate, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("order %s: %w", o.ID, ErrNotFound)
	}

	return nil
}

// Delete removes an order, used only by the duplicate resolver in execute mode.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, `DELETE FROM laundry_orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}
	return nil
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]models.LaundryOrder, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var orders []models.LaundryOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, *o)
	}

	return orders, rows.Err()
}

func encodeOrderJSON(o *models.LaundryOrder) (items string, pickupItems, pickupFrom *string, err error) {
	b, err := json.Marshal(o.Items)
	if err != nil {
		return "", nil, nil, fmt.Errorf("encoding items: %w", err)
	}
	items = string(b)

	if o.PickupItems != nil {
		b, err := json.Marshal(o.PickupItems)
		if err != nil {
			return "", nil, nil, fmt.Errorf("encoding pickup items: %w", err)
		}
		s := string(b)
		pickupItems = &s
	}
	if o.PickupFromOrders != nil {
		b, err := json.Marshal(o.PickupFromOrders)
		if err != nil {
			return "", nil, nil, fmt.Errorf("encoding pickup sources: %w", err)
		}
		s := string(b)
		pickupFrom = &s
	}

	return items, pickupItems, pickupFrom, nil
}

func scanOrder(s scanner) (*models.LaundryOrder, error) {
	var (
		o           models.LaundryOrder
		items       string
		pickupItems sql.NullString
		pickupFrom  sql.NullString
	)

	if err := s.Scan(
		&o.ID, &o.PropertyID, &o.CleaningID, &o.Status, &o.RiderID, &items,
		&o.PickupCompleted, &pickupItems, &pickupFrom, &o.ScheduledDate,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if items == "" {
		items = "[]"
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}
	if pickupItems.Valid && pickupItems.String != "" {
		if err := json.Unmarshal([]byte(pickupItems.String), &o.PickupItems); err != nil {
			return nil, fmt.Errorf("decoding pickup items: %w", err)
		}
	}
	if pickupFrom.Valid && pickupFrom.String != "" {
		if err := json.Unmarshal([]byte(pickupFrom.String), &o.PickupFromOrders); err != nil {
			return nil, fmt.Errorf("decoding pickup sources: %w", err)
		}
	}

	return &o, nil
}
