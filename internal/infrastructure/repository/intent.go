package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

const intentColumns = `merchant_uid, cart_id, user_id, lines, shipping, coupon_code, subtotal, discount,
	amount, status, failure_reason, payment_id, created_at, updated_at`

type intentRow struct {
	MerchantUID   string         `db:"merchant_uid"`
	CartID        string         `db:"cart_id"`
	UserID        sql.NullString `db:"user_id"`
	Lines         string         `db:"lines"`
	Shipping      string         `db:"shipping"`
	CouponCode    sql.NullString `db:"coupon_code"`
	Subtotal      int            `db:"subtotal"`
	Discount      int            `db:"discount"`
	Amount        int            `db:"amount"`
	Status        string         `db:"status"`
	FailureReason string         `db:"failure_reason"`
	PaymentID     sql.NullString `db:"payment_id"`
	CreatedAt     int64          `db:"created_at"`
	UpdatedAt     int64          `db:"updated_at"`
}

func (r intentRow) toIntent() (order.PaymentIntent, error) {
	p := order.PaymentIntent{
		MerchantUID:   r.MerchantUID,
		CartID:        r.CartID,
		UserID:        r.UserID.String,
		CouponCode:    r.CouponCode.String,
		Subtotal:      r.Subtotal,
		Discount:      r.Discount,
		Amount:        r.Amount,
		Status:        order.IntentStatus(r.Status),
		FailureReason: r.FailureReason,
		PaymentID:     r.PaymentID.String,
		CreatedAt:     store.FromMillis(r.CreatedAt),
		UpdatedAt:     store.FromMillis(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.Lines), &p.Lines); err != nil {
		return p, fmt.Errorf("decode lines of %s: %w", r.MerchantUID, err)
	}
	if err := json.Unmarshal([]byte(r.Shipping), &p.Shipping); err != nil {
		return p, fmt.Errorf("decode shipping of %s: %w", r.MerchantUID, err)
	}
	return p, nil
}

type IntentRepository struct {
	db *store.DB
}

func NewIntentRepository(db *store.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

func (r *IntentRepository) Create(ctx context.Context, p *order.PaymentIntent) error {
	lines, shipping, err := encodeLinesAndShipping(p.Lines, p.Shipping)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO payment_intents (`+intentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.MerchantUID, p.CartID, nullString(p.UserID), lines, shipping, nullString(p.CouponCode),
		p.Subtotal, p.Discount, p.Amount, string(p.Status), p.FailureReason, nullString(p.PaymentID),
		store.ToMillis(p.CreatedAt), store.ToMillis(p.UpdatedAt),
	)
	return err
}

func (r *IntentRepository) Get(ctx context.Context, merchantUID string) (*order.PaymentIntent, error) {
	var row intentRow
	err := r.db.Get(ctx, &row, "SELECT "+intentColumns+" FROM payment_intents WHERE merchant_uid = ?", merchantUID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, order.ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	p, err := row.toIntent()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateStatus keeps the stored payment id when paymentID is empty.
func (r *IntentRepository) UpdateStatus(ctx context.Context, merchantUID string, status order.IntentStatus, reason, paymentID string) error {
	n, err := r.db.Exec(ctx,
		`UPDATE payment_intents
		 SET status = ?, failure_reason = ?, payment_id = COALESCE(NULLIF(CAST(? AS TEXT), ''), payment_id), updated_at = ?
		 WHERE merchant_uid = ?`,
		string(status), reason, paymentID, store.ToMillis(time.Now()), merchantUID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return order.ErrIntentNotFound
	}
	return nil
}

func (r *IntentRepository) ListByStatus(ctx context.Context, statuses []order.IntentStatus, limit int) ([]order.PaymentIntent, error) {
	if len(statuses) == 0 {
		return []order.PaymentIntent{}, nil
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	query, args, err := sqlx.In(
		"SELECT "+intentColumns+" FROM payment_intents WHERE status IN (?) ORDER BY created_at ASC LIMIT ?", names, limit)
	if err != nil {
		return nil, err
	}
	var rows []intentRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]order.PaymentIntent, 0, len(rows))
	for _, row := range rows {
		p, err := row.toIntent()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

var _ order.IntentRepository = (*IntentRepository)(nil)
