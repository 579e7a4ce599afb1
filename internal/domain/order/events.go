package order

import "time"

const (
	EventOrderPaid      = "OrderPaid"
	EventOrderPreparing = "OrderPreparing"
	EventOrderShipped   = "OrderShipped"
	EventOrderDelivered = "OrderDelivered"
	EventOrderCancelled = "OrderCancelled"
)

type OrderPaid struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	PaymentID  string    `json:"payment_id"`
	Lines      []Line    `json:"lines"`
	BuyerName  string    `json:"buyer_name"`
	BuyerEmail string    `json:"buyer_email"`
	CouponCode string    `json:"coupon_code,omitempty"`
	Subtotal   int       `json:"subtotal"`
	Discount   int       `json:"discount"`
	Total      int       `json:"total"`
	PaidAt     time.Time `json:"paid_at"`
}

type OrderPreparing struct {
	OrderID    string    `json:"order_id"`
	PreparedAt time.Time `json:"prepared_at"`
}

type OrderShipped struct {
	OrderID   string    `json:"order_id"`
	ShippedAt time.Time `json:"shipped_at"`
}

type OrderDelivered struct {
	OrderID     string    `json:"order_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	Reason      string    `json:"reason"`
	Restocked   bool      `json:"restocked"`
	CancelledAt time.Time `json:"cancelled_at"`
}
