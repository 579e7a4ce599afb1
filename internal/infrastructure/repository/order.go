package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

const orderColumns = `id, payment_id, user_id, lines, shipping, coupon_code, subtotal, discount,
	total_amount, status, created_at, paid_at, shipped_at, delivered_at, cancelled_at, updated_at`

type orderRow struct {
	ID          string         `db:"id"`
	PaymentID   string         `db:"payment_id"`
	UserID      sql.NullString `db:"user_id"`
	Lines       string         `db:"lines"`
	Shipping    string         `db:"shipping"`
	CouponCode  sql.NullString `db:"coupon_code"`
	Subtotal    int            `db:"subtotal"`
	Discount    int            `db:"discount"`
	TotalAmount int            `db:"total_amount"`
	Status      string         `db:"status"`
	CreatedAt   int64          `db:"created_at"`
	PaidAt      sql.NullInt64  `db:"paid_at"`
	ShippedAt   sql.NullInt64  `db:"shipped_at"`
	DeliveredAt sql.NullInt64  `db:"delivered_at"`
	CancelledAt sql.NullInt64  `db:"cancelled_at"`
	UpdatedAt   int64          `db:"updated_at"`
}

func (r orderRow) toOrder() (order.Order, error) {
	o := order.Order{
		ID:          r.ID,
		PaymentID:   r.PaymentID,
		UserID:      r.UserID.String,
		CouponCode:  r.CouponCode.String,
		Subtotal:    r.Subtotal,
		Discount:    r.Discount,
		TotalAmount: r.TotalAmount,
		Status:      order.Status(r.Status),
		CreatedAt:   store.FromMillis(r.CreatedAt),
		PaidAt:      store.TimePtr(r.PaidAt),
		ShippedAt:   store.TimePtr(r.ShippedAt),
		DeliveredAt: store.TimePtr(r.DeliveredAt),
		CancelledAt: store.TimePtr(r.CancelledAt),
		UpdatedAt:   store.FromMillis(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.Lines), &o.Lines); err != nil {
		return o, fmt.Errorf("decode lines of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Shipping), &o.Shipping); err != nil {
		return o, fmt.Errorf("decode shipping of %s: %w", r.ID, err)
	}
	return o, nil
}

type OrderRepository struct {
	db *store.DB
}

func NewOrderRepository(db *store.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	lines, shipping, err := encodeLinesAndShipping(o.Lines, o.Shipping)
	if err != nil {
		return err
	}
	n, err := r.db.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		o.ID, o.PaymentID, nullString(o.UserID), lines, shipping, nullString(o.CouponCode),
		o.Subtotal, o.Discount, o.TotalAmount, string(o.Status), store.ToMillis(o.CreatedAt),
		store.NullMillis(o.PaidAt), store.NullMillis(o.ShippedAt), store.NullMillis(o.DeliveredAt),
		store.NullMillis(o.CancelledAt), store.ToMillis(o.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return order.ErrOrderExists
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var row orderRow
	err := r.db.Get(ctx, &row, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o, err := row.toOrder()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Update persists status and lifecycle timestamps. Lines and amounts are
// immutable once paid.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	n, err := r.db.Exec(ctx,
		`UPDATE orders SET status = ?, paid_at = ?, shipped_at = ?, delivered_at = ?, cancelled_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(o.Status), store.NullMillis(o.PaidAt), store.NullMillis(o.ShippedAt),
		store.NullMillis(o.DeliveredAt), store.NullMillis(o.CancelledAt), store.ToMillis(o.UpdatedAt), o.ID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, "SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC", userID)
}

func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	if f.Status != "" {
		return r.list(ctx,
			"SELECT "+orderColumns+" FROM orders WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
			string(f.Status), f.Limit, f.Offset)
	}
	return r.list(ctx,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?", f.Limit, f.Offset)
}

// HasPurchased reports whether any non-cancelled order of userID contains
// productID. Lines are stored as JSON so the match happens here.
func (r *OrderRepository) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var rows []string
	if err := r.db.Select(ctx, &rows,
		"SELECT lines FROM orders WHERE user_id = ? AND status <> ?", userID, string(order.StatusCancelled),
	); err != nil {
		return false, err
	}
	for _, raw := range rows {
		var lines []order.Line
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			return false, err
		}
		for _, l := range lines {
			if l.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	var rows []orderRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toOrder()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func encodeLinesAndShipping(lines []order.Line, shipping order.Shipping) (string, string, error) {
	l, err := json.Marshal(lines)
	if err != nil {
		return "", "", fmt.Errorf("encode lines: %w", err)
	}
	s, err := json.Marshal(shipping)
	if err != nil {
		return "", "", fmt.Errorf("encode shipping: %w", err)
	}
	return string(l), string(s), nil
}

var _ order.Repository = (*OrderRepository)(nil)
