package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/metrics"
	"github.com/example/nazareth-shop/internal/money"
)

const (
	SignupCouponTTL = 30 * 24 * time.Hour

	maxIssueAttempts = 5
)

// Repository persists coupons. Implementations take the transaction from ctx.
type Repository interface {
	Get(ctx context.Context, code string) (*Coupon, error)
	Insert(ctx context.Context, c *Coupon) error
	InsertIfAbsent(ctx context.Context, c *Coupon) (bool, error)
	ListByOwner(ctx context.Context, userID string) ([]Coupon, error)
	// RecordRedemption returns false when orderID was already recorded.
	RecordRedemption(ctx context.Context, orderID, code string, discount int, at time.Time) (bool, error)
	// IncrementUsage returns false when usedCount already reached usageLimit.
	IncrementUsage(ctx context.Context, code string) (bool, error)
}

// Registry validates, prices and redeems coupons.
type Registry struct {
	repo       Repository
	tx         store.Transactor
	eventStore store.EventStoreInterface
	now        func() time.Time
	generate   func(prefix string) (string, error)
}

func NewRegistry(repo Repository, tx store.Transactor, es store.EventStoreInterface) *Registry {
	return &Registry{
		repo:       repo,
		tx:         tx,
		eventStore: es,
		now:        time.Now,
		generate:   GenerateCode,
	}
}

func (r *Registry) GetCoupon(ctx context.Context, code string) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrNotFound
	}
	return r.repo.Get(ctx, code)
}

// ValidateCoupon checks not-found, not-yet-valid, expired, usage-exhausted and
// below-minimum in that order. Invalid coupons are not errors.
func (r *Registry) ValidateCoupon(ctx context.Context, code string, subtotal int, userID string) (Validation, error) {
	_, v, err := r.lookup(ctx, code, subtotal, userID)
	return v, err
}

// Quote validates and prices a coupon for subtotal.
func (r *Registry) Quote(ctx context.Context, code string, subtotal int, userID string) (int, Validation, error) {
	c, v, err := r.lookup(ctx, code, subtotal, userID)
	if err != nil || !v.Valid {
		return 0, v, err
	}
	return CalculateDiscount(c, subtotal), v, nil
}

func (r *Registry) lookup(ctx context.Context, code string, subtotal int, userID string) (*Coupon, Validation, error) {
	c, err := r.GetCoupon(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid(ReasonNotFound, "유효하지 않은 쿠폰 코드입니다."), nil
	}
	if err != nil {
		return nil, Validation{}, fmt.Errorf("load coupon: %w", err)
	}
	if c.OwnerUserID != "" && c.OwnerUserID != userID {
		return nil, invalid(ReasonNotFound, "유효하지 않은 쿠폰 코드입니다."), nil
	}
	return c, check(c, subtotal, r.now()), nil
}

func check(c *Coupon, subtotal int, now time.Time) Validation {
	switch {
	case now.Before(c.ValidFrom):
		return invalid(ReasonNotYetValid, "아직 사용할 수 없는 쿠폰입니다.")
	case now.After(c.ValidUntil):
		return invalid(ReasonExpired, "만료된 쿠폰입니다.")
	case c.UsedCount >= c.UsageLimit:
		return invalid(ReasonUsageExhausted, "사용 가능 횟수를 초과했습니다.")
	case subtotal < c.MinPurchase:
		return invalid(ReasonBelowMinimum, fmt.Sprintf("최소 구매 금액 %s이 필요합니다.", money.KRW(c.MinPurchase)))
	}
	return Validation{Valid: true, Message: "쿠폰이 적용되었습니다!"}
}

func invalid(reason Reason, msg string) Validation {
	return Validation{Valid: false, Reason: reason, Message: msg}
}

// Redeem records one use of code for orderID. A repeated call for the same
// order is a no-op.
func (r *Registry) Redeem(ctx context.Context, code, orderID string, discount int) error {
	code = NormalizeCode(code)
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		recorded, err := r.repo.RecordRedemption(ctx, orderID, code, discount, r.now())
		if err != nil {
			return fmt.Errorf("record redemption: %w", err)
		}
		if !recorded {
			return nil
		}

		ok, err := r.repo.IncrementUsage(ctx, code)
		if err != nil {
			return fmt.Errorf("increment usage: %w", err)
		}
		if !ok {
			return &InvalidError{Code: code, Reason: ReasonUsageExhausted, Message: "사용 가능 횟수를 초과했습니다."}
		}

		if r.eventStore != nil {
			if _, err := r.eventStore.Append(ctx, code, AggregateType, EventCouponRedeemed, CouponRedeemed{
				Code:       code,
				OrderID:    orderID,
				Discount:   discount,
				RedeemedAt: r.now(),
			}); err != nil {
				return err
			}
		}
		metrics.CouponRedemptionsTotal.Inc()
		return nil
	})
}

// Issue creates a single-use percentage coupon owned by userID.
func (r *Registry) Issue(ctx context.Context, prefix, ownerUserID string, percent int, ttl time.Duration) (*Coupon, error) {
	if percent < 1 || percent > 100 {
		return nil, ErrInvalidDiscount
	}

	source := SourceCatalog
	switch prefix {
	case PrefixEarlyBird:
		source = SourceEarlyBird
	case PrefixReferral:
		source = SourceReferral
	}

	now := r.now()
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := r.generate(prefix)
		if err != nil {
			return nil, fmt.Errorf("generate coupon code: %w", err)
		}
		c := &Coupon{
			Code:        code,
			Kind:        KindPercentage,
			Value:       percent,
			ValidFrom:   now,
			ValidUntil:  now.Add(ttl),
			UsageLimit:  1,
			Description: fmt.Sprintf("%d%% 할인 쿠폰", percent),
			Source:      source,
			OwnerUserID: ownerUserID,
			CreatedAt:   now,
		}
		err = r.repo.Insert(ctx, c)
		if errors.Is(err, ErrCodeCollision) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert coupon: %w", err)
		}

		if r.eventStore != nil {
			if _, err := r.eventStore.Append(ctx, code, AggregateType, EventCouponIssued, CouponIssued{
				Code:        code,
				Source:      source,
				OwnerUserID: ownerUserID,
				Percent:     percent,
				ValidUntil:  c.ValidUntil,
			}); err != nil {
				return nil, err
			}
		}
		return c, nil
	}
	return nil, ErrCodeCollision
}

func (r *Registry) ListForUser(ctx context.Context, userID string) ([]Coupon, error) {
	return r.repo.ListByOwner(ctx, userID)
}

// DefaultCoupons are the catalog coupons seeded on startup.
func DefaultCoupons(now time.Time) []Coupon {
	maxWelcome, maxSpecial := 10000, 20000
	return []Coupon{
		{
			Code: "WELCOME10", Kind: KindPercentage, Value: 10, MinPurchase: 0, MaxDiscount: &maxWelcome,
			ValidFrom: now, ValidUntil: now.AddDate(0, 0, 365), UsageLimit: 1000,
			Description: "신규 가입 환영 10% 할인", Source: SourceCatalog, CreatedAt: now,
		},
		{
			Code: "SAVE5000", Kind: KindFixed, Value: 5000, MinPurchase: 30000,
			ValidFrom: now, ValidUntil: now.AddDate(0, 0, 30), UsageLimit: 500,
			Description: "3만원 이상 구매 시 5천원 할인", Source: SourceCatalog, CreatedAt: now,
		},
		{
			Code: "SPECIAL20", Kind: KindPercentage, Value: 20, MinPurchase: 50000, MaxDiscount: &maxSpecial,
			ValidFrom: now, ValidUntil: now.AddDate(0, 0, 7), UsageLimit: 100,
			Description: "특별 20% 할인 (5만원 이상)", Source: SourceCatalog, CreatedAt: now,
		},
	}
}

// SeedDefaults inserts the catalog coupons that do not exist yet.
func (r *Registry) SeedDefaults(ctx context.Context, now time.Time) (int, error) {
	inserted := 0
	for _, c := range DefaultCoupons(now) {
		c := c
		ok, err := r.repo.InsertIfAbsent(ctx, &c)
		if err != nil {
			return inserted, fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
