// Package laundry turns linen requirements into laundry orders and keeps
// the pickup aggregate of linen owed back from each property.
package laundry

import (
	"context"
	"fmt"

	"github.com/casaops/backend/internal/inventory"
	"github.com/casaops/backend/internal/linen"
	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
)

// OrderService creates laundry orders and recomputes pickup aggregates.
type OrderService struct {
	orders    *storage.OrderRepository
	cleanings *storage.CleaningRepository
	rules     *linen.RuleTable
}

// NewOrderService creates a laundry order service.
func NewOrderService(
	orders *storage.OrderRepository,
	cleanings *storage.CleaningRepository,
	rules *linen.RuleTable,
) *OrderService {
	return &OrderService{
		orders:    orders,
		cleanings: cleanings,
		rules:     rules,
	}
}

// CreateForCleaning generates the linen order for a cleaning. Each linen
// key must resolve to a system inventory item; an unresolvable key aborts
// the order (inventory.ErrItemUnresolved) so linen is never silently
// omitted. Returns (order, false, nil) when the cleaning already has one.
func (s *OrderService) CreateForCleaning(
	ctx context.Context,
	c *models.Cleaning,
	p *models.Property,
	catalog *inventory.Catalog,
) (*models.LaundryOrder, bool, error) {
	if c.LinenOrderID != nil {
		existing, err := s.orders.GetByID(ctx, *c.LinenOrderID)
		if err != nil {
			return nil, false, fmt.Errorf("loading linked order: %w", err)
		}
		if existing != nil {
			return existing, false, nil
		}
		// Dangling link; fall through and regenerate.
	}

	req := linen.ForProperty(s.rules, p, c.GuestsCount)

	var items []models.OrderItem
	for _, line := range req.Keys() {
		itemID, err := catalog.Resolve(line.ItemID)
		if err != nil {
			return nil, false, fmt.Errorf("resolving linen for cleaning %s: %w", c.ID, err)
		}
		items = append(items, models.OrderItem{ItemID: itemID, Quantity: line.Quantity})
	}

	o := &models.LaundryOrder{
		PropertyID:    c.PropertyID,
		CleaningID:    &c.ID,
		Status:        models.OrderStatusPending,
		Items:         items,
		ScheduledDate: c.ScheduledDate,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, false, fmt.Errorf("creating order: %w", err)
	}

	c.LinenOrderID = &o.ID
	if err := s.cleanings.Update(ctx, c); err != nil {
		return nil, false, fmt.Errorf("linking cleaning to order: %w", err)
	}

	return o, true, nil
}
