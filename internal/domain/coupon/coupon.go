package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const AggregateType = "Coupon"

type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

type Source string

const (
	SourceCatalog   Source = "catalog"
	SourceEarlyBird Source = "early_bird"
	SourceReferral  Source = "referral"
)

var (
	ErrNotFound        = errors.New("coupon not found")
	ErrCouponInvalid   = errors.New("coupon is not applicable")
	ErrUsageExhausted  = errors.New("coupon usage limit reached")
	ErrCodeCollision   = errors.New("coupon code already exists")
	ErrInvalidDiscount = errors.New("discount percent must be between 1 and 100")
)

type Coupon struct {
	Code        string    `json:"code"`
	Kind        Kind      `json:"type"`
	Value       int       `json:"value"`
	MinPurchase int       `json:"minPurchase"`
	MaxDiscount *int      `json:"maxDiscount,omitempty"`
	ValidFrom   time.Time `json:"validFrom"`
	ValidUntil  time.Time `json:"validUntil"`
	UsageLimit  int       `json:"usageLimit"`
	UsedCount   int       `json:"usedCount"`
	Description string    `json:"description"`
	Source      Source    `json:"source"`
	OwnerUserID string    `json:"ownerUserId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Reason names the first failed validation check.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotFound       Reason = "not_found"
	ReasonNotYetValid    Reason = "not_yet_valid"
	ReasonExpired        Reason = "expired"
	ReasonUsageExhausted Reason = "usage_exhausted"
	ReasonBelowMinimum   Reason = "below_minimum"
)

type Validation struct {
	Valid   bool   `json:"valid"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message"`
}

// InvalidError carries the validation failure to callers that must abort.
type InvalidError struct {
	Code    string
	Reason  Reason
	Message string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("coupon %s: %s", e.Code, e.Reason)
}

func (e *InvalidError) Unwrap() error { return ErrCouponInvalid }

func (e *InvalidError) Is(target error) bool {
	return target == ErrUsageExhausted && e.Reason == ReasonUsageExhausted
}

// NormalizeCode upper-cases and trims a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CalculateDiscount is the discount for subtotal, clamped to [0, subtotal].
func CalculateDiscount(c *Coupon, subtotal int) int {
	if c == nil || subtotal <= 0 {
		return 0
	}

	var discount int
	switch c.Kind {
	case KindPercentage:
		discount = subtotal * c.Value / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case KindFixed:
		discount = c.Value
	}

	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}
