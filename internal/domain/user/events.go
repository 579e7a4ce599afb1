package user

import "time"

const (
	EventUserRegistered = "UserRegistered"
	EventUserLoggedIn   = "UserLoggedIn"
	EventUserReferred   = "UserReferred"
)

// UserRegistered is emitted when a Kakao account signs in for the first time
type UserRegistered struct {
	UserID       string    `json:"user_id"`
	KakaoID      string    `json:"kakao_id"`
	Name         string    `json:"name"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   string    `json:"referred_by,omitempty"`
	Coupons      []string  `json:"coupons,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserLoggedIn is emitted when an existing user signs in
type UserLoggedIn struct {
	UserID   string    `json:"user_id"`
	LoggedAt time.Time `json:"logged_at"`
}

// UserReferred is emitted on the referrer when a referral is recorded
type UserReferred struct {
	ReferrerID string    `json:"referrer_id"`
	ReferredID string    `json:"referred_id"`
	CouponCode string    `json:"coupon_code,omitempty"`
	ReferredAt time.Time `json:"referred_at"`
}
