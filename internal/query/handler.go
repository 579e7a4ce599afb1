package query

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/domain/catalog"
	"github.com/example/nazareth-shop/internal/domain/inventory"
	"github.com/example/nazareth-shop/internal/readmodel"
)

const (
	topReferrerLimit = 5
	signupDays       = 7
)

// KST is the day boundary used by the admin statistics.
var KST = time.FixedZone("KST", 9*60*60)

type Catalog interface {
	Get(id string) (catalog.Product, error)
	List(f catalog.Filter) []catalog.Product
}

type StockReader interface {
	GetStock(ctx context.Context, productID string) (int, error)
	Snapshot(ctx context.Context) ([]inventory.Level, error)
}

// StatsStore answers the aggregate queries behind the admin dashboard.
type StatsStore interface {
	UserCounts(ctx context.Context, since time.Time) (total, channelAdded, recent int, err error)
	SignupsBetween(ctx context.Context, from, to time.Time) (int, error)
	CouponUsage(ctx context.Context) (total, used int, err error)
	ReferralCount(ctx context.Context) (int, error)
	TopReferrers(ctx context.Context, limit int) ([]readmodel.Referrer, error)
	OrderTotals(ctx context.Context) ([]readmodel.OrderStatusTotal, error)
}

type RecentlyViewed interface {
	Add(ctx context.Context, sessionID, productID string) error
	List(ctx context.Context, sessionID string) ([]string, error)
}

// Handler serves the read side: catalog views joined with live stock, the
// admin inventory and the dashboard statistics.
type Handler struct {
	catalog Catalog
	stock   StockReader
	stats   StatsStore
	recent  RecentlyViewed
	logger  *zap.Logger
}

func NewHandler(c Catalog, stock StockReader, stats StatsStore, recent RecentlyViewed, logger *zap.Logger) *Handler {
	return &Handler{
		catalog: c,
		stock:   stock,
		stats:   stats,
		recent:  recent,
		logger:  logger.Named("query"),
	}
}

// Products

func (h *Handler) GetProduct(ctx context.Context, id string) (*readmodel.ProductReadModel, error) {
	p, err := h.catalog.Get(id)
	if err != nil {
		return nil, err
	}
	return h.productView(ctx, p)
}

func (h *Handler) ListProducts(ctx context.Context, f catalog.Filter) ([]*readmodel.ProductReadModel, error) {
	products := h.catalog.List(f)
	out := make([]*readmodel.ProductReadModel, 0, len(products))
	for _, p := range products {
		view, err := h.productView(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (h *Handler) productView(ctx context.Context, p catalog.Product) (*readmodel.ProductReadModel, error) {
	stock, err := h.stock.GetStock(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &readmodel.ProductReadModel{
		ID:          p.ID,
		Name:        p.Name,
		EnglishName: p.EnglishName,
		KoreanName:  p.KoreanName,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    string(p.Category),
		CharacterID: p.CharacterID,
		Featured:    p.Featured,
		Stock:       stock,
		InStock:     stock > 0,
		LowStock:    stock > 0 && stock <= inventory.DefaultLowStockThreshold,
	}, nil
}

// Recently viewed

// RecordView remembers that sessionID opened productID. Failures are logged
// only; browsing never fails because of the list.
func (h *Handler) RecordView(ctx context.Context, sessionID, productID string) {
	if sessionID == "" || h.recent == nil {
		return
	}
	if err := h.recent.Add(ctx, sessionID, productID); err != nil {
		h.logger.Warn("record recently viewed failed", zap.String("product_id", productID), zap.Error(err))
	}
}

// RecentlyViewed returns the session's products, most recent first. Products
// no longer in the catalog are skipped.
func (h *Handler) RecentlyViewed(ctx context.Context, sessionID string) ([]*readmodel.ProductReadModel, error) {
	out := []*readmodel.ProductReadModel{}
	if sessionID == "" || h.recent == nil {
		return out, nil
	}
	ids, err := h.recent.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		view, err := h.GetProduct(ctx, id)
		if errors.Is(err, catalog.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

// Inventory

func (h *Handler) ListInventory(ctx context.Context) ([]readmodel.InventoryReadModel, error) {
	levels, err := h.stock.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]readmodel.InventoryReadModel, 0, len(levels))
	for _, l := range levels {
		name := l.ProductID
		if p, err := h.catalog.Get(l.ProductID); err == nil {
			name = p.KoreanName
		}
		out = append(out, readmodel.InventoryReadModel{
			ProductID:  l.ProductID,
			Name:       name,
			Stock:      l.Stock,
			LowStock:   l.LowStock,
			OutOfStock: l.OutOfStock,
		})
	}
	return out, nil
}

// Admin statistics

// AdminStats builds the dashboard as of now. Days start at midnight KST.
func (h *Handler) AdminStats(ctx context.Context, now time.Time) (*readmodel.AdminStats, error) {
	today := startOfDay(now.In(KST))

	total, channelAdded, todayUsers, err := h.stats.UserCounts(ctx, today)
	if err != nil {
		return nil, err
	}
	daily, err := h.dailySignups(ctx, today, signupDays)
	if err != nil {
		return nil, err
	}
	couponTotal, couponUsed, err := h.stats.CouponUsage(ctx)
	if err != nil {
		return nil, err
	}
	referrals, err := h.stats.ReferralCount(ctx)
	if err != nil {
		return nil, err
	}
	top, err := h.stats.TopReferrers(ctx, topReferrerLimit)
	if err != nil {
		return nil, err
	}
	byStatus, err := h.stats.OrderTotals(ctx)
	if err != nil {
		return nil, err
	}

	orders := readmodel.OrderStats{ByStatus: byStatus}
	for _, s := range byStatus {
		orders.Count += s.Count
		if s.Status != "cancelled" {
			orders.Revenue += s.Revenue
		}
	}

	return &readmodel.AdminStats{
		Overview: readmodel.Overview{
			TotalUsers:        total,
			ChannelAddedUsers: channelAdded,
			ChannelAddRate:    percent(channelAdded, total),
			TodayUsers:        todayUsers,
		},
		Coupons: readmodel.CouponStats{
			Total:     couponTotal,
			Used:      couponUsed,
			Unused:    couponTotal - couponUsed,
			UsageRate: percent(couponUsed, couponTotal),
		},
		Referrals: readmodel.ReferralStats{
			Total:        referrals,
			TopReferrers: top,
		},
		DailySignups: daily,
		Orders:       orders,
	}, nil
}

// dailySignups counts signups for the days ending with today, oldest first.
func (h *Handler) dailySignups(ctx context.Context, today time.Time, days int) ([]readmodel.DailySignup, error) {
	out := make([]readmodel.DailySignup, 0, days)
	for i := days - 1; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		n, err := h.stats.SignupsBetween(ctx, from, from.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		out = append(out, readmodel.DailySignup{Date: from.Format("2006-01-02"), Count: n})
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// percent is part/whole*100 rounded to one decimal, 0 when whole is 0.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
