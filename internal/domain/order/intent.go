package order

import "time"

type IntentStatus string

const (
	IntentOpen      IntentStatus = "open"
	IntentCompleted IntentStatus = "completed"
	IntentFailed    IntentStatus = "failed"
	IntentReview    IntentStatus = "review"
)

// PaymentIntent is the server-side record of an expected payment. The
// gateway echoes MerchantUID back on completion.
type PaymentIntent struct {
	MerchantUID   string       `json:"merchantUid"`
	CartID        string       `json:"cartId"`
	UserID        string       `json:"userId,omitempty"`
	Lines         []Line       `json:"lines"`
	Shipping      Shipping     `json:"shipping"`
	CouponCode    string       `json:"couponCode,omitempty"`
	Subtotal      int          `json:"subtotal"`
	Discount      int          `json:"discount"`
	Amount        int          `json:"amount"`
	Status        IntentStatus `json:"status"`
	FailureReason string       `json:"failureReason,omitempty"`
	PaymentID     string       `json:"paymentId,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Settled reports whether the intent can no longer complete normally.
func (p *PaymentIntent) Settled() bool {
	return p.Status == IntentCompleted || p.Status == IntentFailed
}
