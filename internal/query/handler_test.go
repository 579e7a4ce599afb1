package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/domain/catalog"
	"github.com/example/nazareth-shop/internal/domain/inventory"
	"github.com/example/nazareth-shop/internal/infrastructure/cache"
	"github.com/example/nazareth-shop/internal/readmodel"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeStock struct {
	levels map[string]int
	err    error
}

func (f *fakeStock) GetStock(_ context.Context, productID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.levels[productID], nil
}

func (f *fakeStock) Snapshot(_ context.Context) ([]inventory.Level, error) {
	out := []inventory.Level{}
	for _, id := range []string{"lambie-plush", "story-book"} {
		s := f.levels[id]
		out = append(out, inventory.Level{ProductID: id, Stock: s, LowStock: s > 0 && s <= 10, OutOfStock: s == 0})
	}
	return out, nil
}

type fakeStats struct {
	total           int
	channel         int
	today           int
	signupsByDay    map[string]int
	couponTotal     int
	couponUsed      int
	referrals       int
	top             []readmodel.Referrer
	orders          []readmodel.OrderStatusTotal
	userCountsSince time.Time
}

func (f *fakeStats) UserCounts(_ context.Context, since time.Time) (int, int, int, error) {
	f.userCountsSince = since
	return f.total, f.channel, f.today, nil
}

func (f *fakeStats) SignupsBetween(_ context.Context, from, _ time.Time) (int, error) {
	return f.signupsByDay[from.Format("2006-01-02")], nil
}

func (f *fakeStats) CouponUsage(context.Context) (int, int, error) {
	return f.couponTotal, f.couponUsed, nil
}

func (f *fakeStats) ReferralCount(context.Context) (int, error) { return f.referrals, nil }

func (f *fakeStats) TopReferrers(_ context.Context, limit int) ([]readmodel.Referrer, error) {
	if len(f.top) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeStats) OrderTotals(context.Context) ([]readmodel.OrderStatusTotal, error) {
	return f.orders, nil
}

func newTestQueryHandler() (*Handler, *fakeStock, *fakeStats) {
	stock := &fakeStock{levels: map[string]int{"lambie-plush": 28, "story-book": 3}}
	stats := &fakeStats{signupsByDay: map[string]int{}}
	h := NewHandler(catalog.Default(), stock, stats, cache.NewMemoryRecentlyViewed(), zap.NewNop())
	return h, stock, stats
}

// =============================================================================
// Products
// =============================================================================

func TestHandler_GetProduct(t *testing.T) {
	h, _, _ := newTestQueryHandler()
	ctx := context.Background()

	p, err := h.GetProduct(ctx, "lambie-plush")
	require.NoError(t, err)
	assert.Equal(t, "램비 인형", p.KoreanName)
	assert.Equal(t, 35000, p.Price)
	assert.Equal(t, 28, p.Stock)
	assert.True(t, p.InStock)
	assert.False(t, p.LowStock)

	book, err := h.GetProduct(ctx, "story-book")
	require.NoError(t, err)
	assert.True(t, book.LowStock)

	_, err = h.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestHandler_ListProducts(t *testing.T) {
	h, stock, _ := newTestQueryHandler()
	ctx := context.Background()

	all, err := h.ListProducts(ctx, catalog.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, len(catalog.Default().IDs()))

	plushies, err := h.ListProducts(ctx, catalog.Filter{Category: catalog.CategoryPlushie})
	require.NoError(t, err)
	for _, p := range plushies {
		assert.Equal(t, "plushie", p.Category)
	}

	sold := 0
	for _, p := range all {
		if !p.InStock {
			sold++
		}
	}
	assert.Equal(t, len(all)-2, sold, "only stocked products report in stock")

	stock.err = errors.New("db down")
	_, err = h.ListProducts(ctx, catalog.Filter{})
	assert.Error(t, err)
}

func TestHandler_RecentlyViewed(t *testing.T) {
	h, _, _ := newTestQueryHandler()
	ctx := context.Background()

	h.RecordView(ctx, "sess-1", "lambie-plush")
	h.RecordView(ctx, "sess-1", "story-book")
	h.RecordView(ctx, "sess-1", "lambie-plush")
	h.RecordView(ctx, "", "story-book")

	views, err := h.RecentlyViewed(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "lambie-plush", views[0].ID)
	assert.Equal(t, "story-book", views[1].ID)

	empty, err := h.RecentlyViewed(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHandler_ListInventory(t *testing.T) {
	h, _, _ := newTestQueryHandler()

	rows, err := h.ListInventory(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "램비 인형", rows[0].Name)
	assert.True(t, rows[1].LowStock)
}

// =============================================================================
// Admin statistics
// =============================================================================

func TestHandler_AdminStats(t *testing.T) {
	h, _, stats := newTestQueryHandler()
	stats.total, stats.channel, stats.today = 3, 1, 2
	stats.couponTotal, stats.couponUsed = 6, 1
	stats.referrals = 4
	stats.top = []readmodel.Referrer{{ID: "u1", Name: "A", ReferralCount: 3}, {ID: "u2", Name: "B", ReferralCount: 1}}
	stats.orders = []readmodel.OrderStatusTotal{
		{Status: "cancelled", Count: 1, Revenue: 10000},
		{Status: "paid", Count: 2, Revenue: 70000},
	}
	stats.signupsByDay["2026-03-10"] = 2
	stats.signupsByDay["2026-03-04"] = 1

	// 2026-03-09 16:30 UTC is already 2026-03-10 in Korea.
	now := time.Date(2026, 3, 9, 16, 30, 0, 0, time.UTC)
	got, err := h.AdminStats(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 33.3, got.Overview.ChannelAddRate)
	assert.Equal(t, 2, got.Overview.TodayUsers)
	assert.True(t, stats.userCountsSince.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, KST)))

	assert.Equal(t, 5, got.Coupons.Unused)
	assert.Equal(t, 16.7, got.Coupons.UsageRate)

	assert.Equal(t, 4, got.Referrals.Total)
	assert.Len(t, got.Referrals.TopReferrers, 2)

	require.Len(t, got.DailySignups, 7)
	assert.Equal(t, readmodel.DailySignup{Date: "2026-03-04", Count: 1}, got.DailySignups[0])
	assert.Equal(t, readmodel.DailySignup{Date: "2026-03-10", Count: 2}, got.DailySignups[6])

	assert.Equal(t, 3, got.Orders.Count)
	assert.Equal(t, 70000, got.Orders.Revenue)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, whole int
		want float64
	}{
		{0, 0, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{5, 5, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percent(tt.part, tt.whole))
	}
}
