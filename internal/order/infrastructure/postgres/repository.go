package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/foodcourt/vendor-dashboard/internal/order/application"
	"github.com/foodcourt/vendor-dashboard/internal/order/domain"
)

// Repository is the order catalog client backed by the shared remote store.
// Monetary and duration columns are read as text and coerced here; the
// remote schema stores them loosely.
type Repository struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{
		log:    log,
		pool:   pool,
		tracer: otel.Tracer("order-catalog"),
	}
}

// ResolveVendor translates an authenticated user to their vendor identity.
func (r *Repository) ResolveVendor(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	ctx, span := r.tracer.Start(ctx, "ResolveVendor")
	defer span.End()

	var raw string
	err := r.pool.QueryRow(ctx, `SELECT vendorid::text FROM vendors WHERE userid=$1`, userID.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("user %s: %w", userID, application.ErrVendorNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve vendor for user %s: %w", userID, err)
	}
	vendorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse vendor id %q: %w", raw, err)
	}
	return vendorID, nil
}

// ListOrders fetches the vendor's full order set with nested line items and
// item metadata, newest first.
func (r *Repository) ListOrders(ctx context.Context, vendorID uuid.UUID) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "ListOrders")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT o.order_id, o.status, o.total_price::text, o.pick_up_time::text,
		       o.created_at, o.customer_id::text, o.vendor_id::text,
		       oi.quantity, oi.price::text, mi.item_id, mi.item_name, mi.is_veg
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.order_id
		LEFT JOIN menu_items mi ON mi.item_id = oi.item_id
		WHERE o.vendor_id = $1
		ORDER BY o.created_at DESC, o.order_id, oi.id
	`, vendorID.String())
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.Order
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			id                    int64
			status, total, pickup string
			createdAt             time.Time
			customerID, vendorRaw *string
			quantity              *int
			price, itemName       *string
			itemID                *int64
			isVeg                 *bool
		)
		if err := rows.Scan(&id, &status, &total, &pickup, &createdAt,
			&customerID, &vendorRaw, &quantity, &price, &itemID, &itemName, &isVeg); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		pos, seen := index[id]
		if !seen {
			o, err := buildOrder(id, status, total, pickup, createdAt, customerID, vendorRaw)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
			pos = len(out) - 1
			index[id] = pos
		}

		// LEFT JOIN: orders without lines yield a single all-NULL item row.
		if quantity == nil || itemID == nil {
			continue
		}
		unit, err := parseMoney(*price)
		if err != nil {
			return nil, fmt.Errorf("order %d line price: %w", id, err)
		}
		line := domain.OrderLineItem{
			Quantity: *quantity,
			Price:    unit,
			Item:     domain.Item{ID: *itemID},
		}
		if itemName != nil {
			line.Item.Name = *itemName
		}
		if isVeg != nil {
			line.Item.IsVeg = *isVeg
		}
		out[pos].Items = append(out[pos].Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// UpdateStatus writes the status change to the remote store scoped by order
// id. An update touching no rows is a failed write, not a silent success.
func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "UpdateStatus")
	defer span.End()

	ct, err := r.pool.Exec(ctx, `UPDATE orders SET status=$1 WHERE order_id=$2`, string(status), orderID)
	if err != nil {
		return fmt.Errorf("update order %d: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %d not present in remote store", orderID)
	}
	return nil
}

func buildOrder(id int64, status, total, pickup string, createdAt time.Time, customerID, vendorRaw *string) (domain.Order, error) {
	totalPrice, err := parseMoney(total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %d total_price: %w", id, err)
	}
	minutes, err := parseMinutes(pickup)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %d pick_up_time: %w", id, err)
	}

	o := domain.Order{
		ID:         id,
		Status:     domain.OrderStatus(status),
		TotalPrice: totalPrice,
		PickUpTime: minutes,
		CreatedAt:  createdAt,
	}
	if vendorRaw != nil {
		v, err := uuid.Parse(*vendorRaw)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %d vendor_id: %w", id, err)
		}
		o.VendorID = v
	}
	if customerID != nil {
		c, err := uuid.Parse(*customerID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %d customer_id: %w", id, err)
		}
		o.CustomerID = &c
	}
	return o, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseMinutes accepts the loose representations seen in the remote store:
// "10", "10.0", " 10 ".
func parseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
