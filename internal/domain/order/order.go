package order

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const AggregateType = "Order"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderExists      = errors.New("order already exists")
	ErrEmptyOrder       = errors.New("order must have at least one item")
	ErrInvalidStatus    = errors.New("invalid order status transition")
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	ErrOrderNotPaid     = errors.New("order must be paid before fulfilment")
	ErrOrderDelivered   = errors.New("cannot change a delivered order")
	ErrOrderCancelled   = errors.New("order is already cancelled")
	ErrInvalidShipping  = errors.New("shipping name, phone and address are required")
	ErrUnknownStatus    = errors.New("unknown order status")
	ErrIntentNotFound   = errors.New("payment intent not found")
	ErrIntentNotPending = errors.New("payment intent is already settled")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {}, // terminal state
	StatusCancelled: {}, // terminal state
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case o.Status == StatusDelivered:
		return ErrOrderDelivered
	case o.Status != StatusPending && target == StatusPaid:
		return ErrOrderAlreadyPaid
	case o.Status == StatusPending && (target == StatusPreparing || target == StatusShipped || target == StatusDelivered):
		return ErrOrderNotPaid
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
	}
}

type Line struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   int    `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
}

type Shipping struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone"`
	Postcode      string `json:"postcode,omitempty"`
	Address       string `json:"address"`
	AddressDetail string `json:"addressDetail,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (s Shipping) Validate() error {
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Phone) == "" || strings.TrimSpace(s.Address) == "" {
		return ErrInvalidShipping
	}
	return nil
}

type Order struct {
	ID          string     `json:"id"`
	PaymentID   string     `json:"paymentId"`
	UserID      string     `json:"userId,omitempty"`
	Lines       []Line     `json:"lines"`
	Shipping    Shipping   `json:"shippingInfo"`
	CouponCode  string     `json:"couponCode,omitempty"`
	Subtotal    int        `json:"subtotal"`
	Discount    int        `json:"discount"`
	TotalAmount int        `json:"totalAmount"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Subtotal sums unitPrice × quantity over lines.
func Subtotal(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.UnitPrice * l.Quantity
	}
	return total
}

// Name is the gateway order name: "<first> 외 N건" for several lines.
func Name(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	if len(lines) == 1 {
		return lines[0].ProductName
	}
	return fmt.Sprintf("%s 외 %d건", lines[0].ProductName, len(lines)-1)
}

// NewMerchantUID returns order_<unixmillis>_<8 hex>.
func NewMerchantUID(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("order_%d_%s", now.UnixMilli(), hex.EncodeToString(buf)), nil
}

// SamePhone compares phone numbers by their digits.
func SamePhone(a, b string) bool {
	da, db := digits(a), digits(b)
	return da != "" && da == db
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
