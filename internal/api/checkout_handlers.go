package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/api/middleware"
	"github.com/example/nazareth-shop/internal/checkout"
	"github.com/example/nazareth-shop/internal/payment"
)

// PrepareCheckout validates the session cart and returns the parameters for
// the payment widget.
func (s *Server) PrepareCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkout.PrepareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.CartID = middleware.CartSessionID(r.Context())
	req.UserID = middleware.GetUserID(r.Context())

	params, err := s.Checkout.Prepare(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, params)
}

// CompleteCheckout handles the widget callback. Repeating the call for the
// same merchant uid returns the first decision.
func (s *Server) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	var cb checkout.Callback
	if err := decodeJSON(w, r, &cb); err != nil {
		s.respondError(w, r, err)
		return
	}
	if cb.MerchantUID == "" || (cb.Success && cb.ImpUID == "") {
		respondMessage(w, http.StatusBadRequest, "merchant_uid and imp_uid are required")
		return
	}

	res, err := s.Checkout.Complete(r.Context(), cb)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, resultStatus(res), res)
}

func resultStatus(res *checkout.Result) int {
	switch res.Outcome {
	case checkout.OutcomeSuccess:
		return http.StatusOK
	case checkout.OutcomeAmbiguous:
		return http.StatusAccepted
	default:
		return http.StatusPaymentRequired
	}
}

type VerifyPaymentRequest struct {
	ImpUID      string `json:"imp_uid"`
	MerchantUID string `json:"merchant_uid"`
}

// VerifyPayment checks a gateway payment against the stored intent without
// finalizing the order.
func (s *Server) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ImpUID == "" || req.MerchantUID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Missing required parameters"})
		return
	}

	p, err := s.Checkout.Verify(r.Context(), req.ImpUID, req.MerchantUID)
	if err != nil {
		var mismatch *payment.AmountMismatchError
		switch {
		case errors.As(err, &mismatch):
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": "Payment amount mismatch",
				"details": map[string]int{"expected": mismatch.Expected, "actual": mismatch.Actual},
			})
		case errors.Is(err, payment.ErrPaymentNotCompleted):
			respondJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Payment not completed"})
		default:
			status := statusFor(err)
			body := map[string]any{"success": false, "message": "Payment verification failed"}
			if status == http.StatusInternalServerError {
				s.logger.Error("payment verification failed", zap.String("merchant_uid", req.MerchantUID), zap.Error(err))
			} else {
				body["error"] = err.Error()
			}
			respondJSON(w, status, body)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment verified successfully",
		"data":    p,
	})
}
