package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/nazareth-shop/internal/domain/coupon"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

const couponColumns = `code, kind, value, min_purchase, max_discount, valid_from, valid_until,
	usage_limit, used_count, description, source, owner_user_id, created_at`

type couponRow struct {
	Code        string         `db:"code"`
	Kind        string         `db:"kind"`
	Value       int            `db:"value"`
	MinPurchase int            `db:"min_purchase"`
	MaxDiscount sql.NullInt64  `db:"max_discount"`
	ValidFrom   int64          `db:"valid_from"`
	ValidUntil  int64          `db:"valid_until"`
	UsageLimit  int            `db:"usage_limit"`
	UsedCount   int            `db:"used_count"`
	Description string         `db:"description"`
	Source      string         `db:"source"`
	OwnerUserID sql.NullString `db:"owner_user_id"`
	CreatedAt   int64          `db:"created_at"`
}

func (r couponRow) toCoupon() coupon.Coupon {
	c := coupon.Coupon{
		Code:        r.Code,
		Kind:        coupon.Kind(r.Kind),
		Value:       r.Value,
		MinPurchase: r.MinPurchase,
		ValidFrom:   store.FromMillis(r.ValidFrom),
		ValidUntil:  store.FromMillis(r.ValidUntil),
		UsageLimit:  r.UsageLimit,
		UsedCount:   r.UsedCount,
		Description: r.Description,
		Source:      coupon.Source(r.Source),
		OwnerUserID: r.OwnerUserID.String,
		CreatedAt:   store.FromMillis(r.CreatedAt),
	}
	if r.MaxDiscount.Valid {
		max := int(r.MaxDiscount.Int64)
		c.MaxDiscount = &max
	}
	return c
}

type CouponRepository struct {
	db *store.DB
}

func NewCouponRepository(db *store.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) Get(ctx context.Context, code string) (*coupon.Coupon, error) {
	var row couponRow
	err := r.db.Get(ctx, &row, "SELECT "+couponColumns+" FROM coupons WHERE code = ?", code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, coupon.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c := row.toCoupon()
	return &c, nil
}

// Insert fails with ErrCodeCollision when the code exists. ON CONFLICT keeps
// a surrounding PostgreSQL transaction usable for the retry.
func (r *CouponRepository) Insert(ctx context.Context, c *coupon.Coupon) error {
	ok, err := r.InsertIfAbsent(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return coupon.ErrCodeCollision
	}
	return nil
}

func (r *CouponRepository) InsertIfAbsent(ctx context.Context, c *coupon.Coupon) (bool, error) {
	var maxDiscount sql.NullInt64
	if c.MaxDiscount != nil {
		maxDiscount = sql.NullInt64{Int64: int64(*c.MaxDiscount), Valid: true}
	}
	n, err := r.db.Exec(ctx,
		`INSERT INTO coupons (`+couponColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (code) DO NOTHING`,
		c.Code, string(c.Kind), c.Value, c.MinPurchase, maxDiscount,
		store.ToMillis(c.ValidFrom), store.ToMillis(c.ValidUntil),
		c.UsageLimit, c.UsedCount, c.Description, string(c.Source),
		nullString(c.OwnerUserID), store.ToMillis(c.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *CouponRepository) ListByOwner(ctx context.Context, userID string) ([]coupon.Coupon, error) {
	var rows []couponRow
	if err := r.db.Select(ctx, &rows,
		"SELECT "+couponColumns+" FROM coupons WHERE owner_user_id = ? ORDER BY created_at DESC", userID,
	); err != nil {
		return nil, err
	}
	out := make([]coupon.Coupon, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCoupon())
	}
	return out, nil
}

func (r *CouponRepository) RecordRedemption(ctx context.Context, orderID, code string, discount int, at time.Time) (bool, error) {
	n, err := r.db.Exec(ctx,
		`INSERT INTO coupon_redemptions (order_id, code, discount, redeemed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (order_id) DO NOTHING`,
		orderID, code, discount, store.ToMillis(at))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	n, err := r.db.Exec(ctx,
		"UPDATE coupons SET used_count = used_count + 1 WHERE code = ? AND used_count < usage_limit", code)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ coupon.Repository = (*CouponRepository)(nil)
