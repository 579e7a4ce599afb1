package checkout

import (
	"errors"
	"fmt"

	"github.com/example/nazareth-shop/internal/domain/inventory"
	"github.com/example/nazareth-shop/internal/domain/order"
)

var (
	ErrInProgress = errors.New("checkout is already being processed")
	ErrNoPayment  = errors.New("payment intent has no gateway payment to reconcile")
	ErrNotPending = errors.New("payment intent is not awaiting reconciliation")
	// ErrNothingToPay rejects carts whose discount covers the whole subtotal.
	ErrNothingToPay = errors.New("order total must be greater than zero")
)

// PrepareRequest starts a checkout for the cart.
type PrepareRequest struct {
	CartID   string         `json:"-"`
	UserID   string         `json:"-"`
	Shipping order.Shipping `json:"shippingInfo"`
}

// GatewayParams are handed to the client payment widget.
type GatewayParams struct {
	PG            string `json:"pg"`
	PayMethod     string `json:"pay_method"`
	MerchantUID   string `json:"merchant_uid"`
	Name          string `json:"name"`
	Amount        int    `json:"amount"`
	BuyerName     string `json:"buyer_name"`
	BuyerEmail    string `json:"buyer_email,omitempty"`
	BuyerTel      string `json:"buyer_tel"`
	BuyerAddr     string `json:"buyer_addr"`
	BuyerPostcode string `json:"buyer_postcode,omitempty"`
	RedirectURL   string `json:"m_redirect_url,omitempty"`
}

// Callback is what the payment widget reports back.
type Callback struct {
	MerchantUID string `json:"merchant_uid"`
	ImpUID      string `json:"imp_uid"`
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"error_msg,omitempty"`
}

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeAmbiguous Outcome = "ambiguous"
)

// Result is the decision for one checkout completion.
type Result struct {
	Outcome Outcome      `json:"outcome"`
	Order   *order.Order `json:"order,omitempty"`
	Err     error        `json:"-"`
	Message string       `json:"message"`

	// review is set when the intent was left for an operator, so the result
	// must not be replayed to later callbacks.
	review bool
}

// StockError names the line that could not be covered by stock.
type StockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return inventory.ErrInsufficientStock }
