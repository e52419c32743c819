package models

import "time"

// LaundryOrder status constants
const (
	OrderStatusPending   = "pending"
	OrderStatusPicking   = "picking"
	OrderStatusAssigned  = "assigned"
	OrderStatusInTransit = "in_transit"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderStatusRank orders statuses by progression. Higher wins when the
// duplicate resolver picks a keeper.
var OrderStatusRank = map[string]int{
	OrderStatusPending:   1,
	OrderStatusPicking:   2,
	OrderStatusAssigned:  3,
	OrderStatusInTransit: 4,
	OrderStatusDelivered: 5,
}

// OrderItem is one line of a laundry order.
type OrderItem struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// LaundryOrder is a linen delivery/pickup document tied to a cleaning.
type LaundryOrder struct {
	ID         string      `json:"id"`
	PropertyID string      `json:"property_id" validate:"required"`
	CleaningID *string     `json:"cleaning_id,omitempty"`
	Status     string      `json:"status" validate:"oneof=pending picking assigned in_transit delivered cancelled"`
	RiderID    *string     `json:"rider_id,omitempty"`
	Items      []OrderItem `json:"items" validate:"dive"`

	// Pickup aggregate: linen still owed back from the property, recomputed
	// from all delivered, not-yet-collected orders.
	PickupCompleted  bool        `json:"pickup_completed"`
	PickupItems      []OrderItem `json:"pickup_items,omitempty" validate:"dive"`
	PickupFromOrders []string    `json:"pickup_from_orders,omitempty"`

	ScheduledDate string    `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
