package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is one customer order for a single vendor, as projected from the
// remote store. Line items are immutable once the order exists; only the
// status field is ever mutated by this service.
type Order struct {
	ID         int64           `json:"order_id"`
	Status     OrderStatus     `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	// PickUpTime is the vendor's preparation estimate in minutes, supplied
	// when the order is accepted for preparation.
	PickUpTime int             `json:"pick_up_time"`
	CreatedAt  time.Time       `json:"created_at"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	VendorID   uuid.UUID       `json:"vendor_id"`
	Items      []OrderLineItem `json:"items"`
}

type OrderLineItem struct {
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Item     Item            `json:"item"`
}

type Item struct {
	ID    int64  `json:"item_id"`
	Name  string `json:"item_name"`
	IsVeg bool   `json:"is_veg"`
}

// PrepDuration converts the pick-up estimate into a countdown duration.
func (o Order) PrepDuration() time.Duration {
	return time.Duration(o.PickUpTime) * time.Minute
}
