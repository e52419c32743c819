package laundry

import (
	"context"
	"fmt"
	"sort"

	"github.com/casaops/backend/internal/inventory"
	"github.com/casaops/backend/internal/storage/models"
)

// PickupAggregate is the linen still owed back from a property, summed
// across all delivered, not-yet-collected orders.
type PickupAggregate struct {
	Items      []models.OrderItem `json:"items"`
	FromOrders []string           `json:"from_orders"`
	// TargetOrderID is the open order the aggregate was written onto, when
	// one exists.
	TargetOrderID *string `json:"target_order_id,omitempty"`
}

// AggregatePickup sums the linen items of the given orders. Non-linen items
// (cleaning products, kits) are excluded. Orders already collected
// (pickup_completed) must be filtered out by the caller.
func AggregatePickup(orders []models.LaundryOrder, catalog *inventory.Catalog) PickupAggregate {
	sums := make(map[string]int)
	from := make([]string, 0, len(orders))

	for _, o := range orders {
		from = append(from, o.ID)
		for _, item := range o.Items {
			if item.Quantity <= 0 {
				continue
			}
			if catalog.IsLinen(item.ItemID) {
				sums[item.ItemID] += item.Quantity
			}
		}
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]models.OrderItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, models.OrderItem{ItemID: k, Quantity: sums[k]})
	}

	return PickupAggregate{Items: items, FromOrders: from}
}

// RecomputePickup rebuilds the pickup aggregate for a property from its
// delivered, not-yet-collected orders, and writes it onto the property's
// open pending order when one exists. The previous aggregate is fully
// replaced, never appended to, so the operation is safe to re-run.
func (s *OrderService) RecomputePickup(ctx context.Context, propertyID string, catalog *inventory.Catalog) (*PickupAggregate, error) {
	pending, err := s.orders.ListPendingPickup(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading pending-pickup orders: %w", err)
	}

	agg := AggregatePickup(pending, catalog)

	target, err := s.orders.GetOpenByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading open order: %w", err)
	}
	if target != nil {
		target.PickupItems = agg.Items
		target.PickupFromOrders = agg.FromOrders
		if err := s.orders.Update(ctx, target); err != nil {
			return nil, fmt.Errorf("writing pickup aggregate: %w", err)
		}
		agg.TargetOrderID = &target.ID
	}

	return &agg, nil
}
