package application

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/foodcourt/vendor-dashboard/internal/order/domain"
)

var (
	// ErrVendorNotFound means the authenticated actor has no vendor record.
	// It is fatal for the dashboard view: loading no orders is not the same
	// as having no vendor.
	ErrVendorNotFound = errors.New("no vendor record for user")

	ErrOrderNotFound      = errors.New("order not found")
	ErrTransitionInFlight = errors.New("a transition for this order is already in flight")
)

// CatalogClient fetches the vendor's full order set, with nested line items,
// from the remote store.
type CatalogClient interface {
	ListOrders(ctx context.Context, vendorID uuid.UUID) ([]domain.Order, error)
}

// StatusWriter performs the remote status update. The write must be
// acknowledged before any local state changes.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
}

// Refresher requests a reconciliation without waiting for it.
type Refresher interface {
	Kick()
}

// Notifier surfaces recoverable failures to the vendor. Implementations must
// not block.
type Notifier interface {
	Notify(kind, message string)
}

// Observer watches Order Store mutations. The Countdown Scheduler is the
// only production observer.
type Observer interface {
	OrderStatusChanged(o domain.Order)
	OrdersReplaced(orders []domain.Order)
}
