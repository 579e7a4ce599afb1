package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/auth"
	"github.com/example/nazareth-shop/internal/checkout"
	"github.com/example/nazareth-shop/internal/domain/cart"
	"github.com/example/nazareth-shop/internal/domain/catalog"
	"github.com/example/nazareth-shop/internal/domain/coupon"
	"github.com/example/nazareth-shop/internal/domain/inventory"
	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/domain/review"
	"github.com/example/nazareth-shop/internal/domain/settings"
	"github.com/example/nazareth-shop/internal/domain/user"
	"github.com/example/nazareth-shop/internal/domain/wishlist"
	"github.com/example/nazareth-shop/internal/payment"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("invalid request body")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, cart.ErrInvalidCart),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidShipping),
		errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, review.ErrInvalidContent),
		errors.Is(err, settings.ErrInvalidSetting),
		errors.Is(err, coupon.ErrCouponInvalid),
		errors.Is(err, coupon.ErrInvalidDiscount),
		errors.Is(err, payment.ErrAmountMismatch),
		errors.Is(err, payment.ErrPaymentNotCompleted),
		errors.Is(err, payment.ErrMerchantMismatch),
		errors.Is(err, checkout.ErrNothingToPay):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAdminDisabled):
		return http.StatusForbidden
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, review.ErrProductNotFound),
		errors.Is(err, review.ErrReviewNotFound),
		errors.Is(err, wishlist.ErrProductNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrIntentNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, coupon.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderDelivered),
		errors.Is(err, order.ErrOrderNotPaid),
		errors.Is(err, order.ErrOrderAlreadyPaid),
		errors.Is(err, order.ErrIntentNotPending),
		errors.Is(err, checkout.ErrInProgress),
		errors.Is(err, checkout.ErrNotPending),
		errors.Is(err, checkout.ErrNoPayment):
		return http.StatusConflict
	case errors.Is(err, payment.ErrTransient),
		errors.Is(err, payment.ErrGatewayFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Internal errors are logged and
// never echoed to the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondMessage(w, status, "internal server error")
		return
	}

	body := map[string]any{"error": err.Error()}
	var stockErr *checkout.StockError
	var couponErr *coupon.InvalidError
	var amountErr *payment.AmountMismatchError
	switch {
	case errors.As(err, &stockErr):
		body["productId"] = stockErr.ProductID
		body["productName"] = stockErr.ProductName
		body["requested"] = stockErr.Requested
		body["available"] = stockErr.Available
	case errors.As(err, &couponErr):
		body["reason"] = couponErr.Reason
		body["error"] = couponErr.Message
	case errors.As(err, &amountErr):
		body["expected"] = amountErr.Expected
		body["actual"] = amountErr.Actual
	}
	respondJSON(w, status, body)
}
