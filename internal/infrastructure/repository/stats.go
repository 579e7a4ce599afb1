package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/readmodel"
)

// StatsRepository answers the admin dashboard aggregates.
type StatsRepository struct {
	db *store.DB
}

func NewStatsRepository(db *store.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// UserCounts returns the total users, those who added the channel, and
// those created at or after since.
func (r *StatsRepository) UserCounts(ctx context.Context, since time.Time) (total, channelAdded, recent int, err error) {
	var row struct {
		Total        int           `db:"total"`
		ChannelAdded sql.NullInt64 `db:"channel_added"`
		Recent       sql.NullInt64 `db:"recent"`
	}
	err = r.db.Get(ctx, &row,
		`SELECT COUNT(*) AS total,
		        SUM(CASE WHEN channel_added THEN 1 ELSE 0 END) AS channel_added,
		        SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END) AS recent
		 FROM users`, store.ToMillis(since))
	if err != nil {
		return 0, 0, 0, err
	}
	return row.Total, int(row.ChannelAdded.Int64), int(row.Recent.Int64), nil
}

func (r *StatsRepository) SignupsBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.Get(ctx, &n,
		"SELECT COUNT(*) FROM users WHERE created_at >= ? AND created_at < ?",
		store.ToMillis(from), store.ToMillis(to))
	return n, err
}

// CouponUsage counts coupons issued to users and how many were used.
func (r *StatsRepository) CouponUsage(ctx context.Context) (total, used int, err error) {
	var row struct {
		Total int           `db:"total"`
		Used  sql.NullInt64 `db:"used"`
	}
	err = r.db.Get(ctx, &row,
		`SELECT COUNT(*) AS total, SUM(CASE WHEN used_count > 0 THEN 1 ELSE 0 END) AS used
		 FROM coupons WHERE source <> 'catalog'`)
	if err != nil {
		return 0, 0, err
	}
	return row.Total, int(row.Used.Int64), nil
}

func (r *StatsRepository) ReferralCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.Get(ctx, &n, "SELECT COUNT(*) FROM referrals")
	return n, err
}

func (r *StatsRepository) TopReferrers(ctx context.Context, limit int) ([]readmodel.Referrer, error) {
	out := []readmodel.Referrer{}
	err := r.db.Select(ctx, &out,
		`SELECT id, name, referral_count, COALESCE(profile_image, '') AS profile_image
		 FROM users WHERE referral_count > 0 ORDER BY referral_count DESC, created_at ASC LIMIT ?`, limit)
	return out, err
}

func (r *StatsRepository) OrderTotals(ctx context.Context) ([]readmodel.OrderStatusTotal, error) {
	out := []readmodel.OrderStatusTotal{}
	err := r.db.Select(ctx, &out,
		`SELECT status, COUNT(*) AS order_count, COALESCE(SUM(total_amount), 0) AS revenue
		 FROM orders GROUP BY status ORDER BY status`)
	return out, err
}
