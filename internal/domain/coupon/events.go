package coupon

import "time"

const (
	EventCouponIssued   = "CouponIssued"
	EventCouponRedeemed = "CouponRedeemed"
)

type CouponIssued struct {
	Code        string    `json:"code"`
	Source      Source    `json:"source"`
	OwnerUserID string    `json:"owner_user_id"`
	Percent     int       `json:"percent"`
	ValidUntil  time.Time `json:"valid_until"`
}

type CouponRedeemed struct {
	Code       string    `json:"code"`
	OrderID    string    `json:"order_id"`
	Discount   int       `json:"discount"`
	RedeemedAt time.Time `json:"redeemed_at"`
}
