package api

import (
	"fmt"
	"net/http"

	"github.com/example/nazareth-shop/internal/api/middleware"
	"github.com/example/nazareth-shop/internal/domain/cart"
	"github.com/example/nazareth-shop/internal/domain/coupon"
)

// CartResponse is the priced cart plus a stock warning when a quantity was
// clamped.
type CartResponse struct {
	*cart.Summary
	Change  *cart.Change `json:"change,omitempty"`
	Warning string       `json:"warning,omitempty"`
}

type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CouponRequest struct {
	Code string `json:"code"`
}

func (s *Server) writeCart(w http.ResponseWriter, r *http.Request, status int, change *cart.Change) {
	ctx := r.Context()
	summary, err := s.Carts.Summarize(ctx, middleware.CartSessionID(ctx), middleware.GetUserID(ctx))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp := CartResponse{Summary: summary, Change: change}
	if change != nil && change.Clamped {
		resp.Warning = fmt.Sprintf("재고 부족: 최대 %d개까지 가능", change.Available)
	}
	respondJSON(w, status, resp)
}

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	s.writeCart(w, r, http.StatusOK, nil)
}

func (s *Server) AddToCart(w http.ResponseWriter, r *http.Request) {
	// An omitted quantity adds one unit.
	req := AddToCartRequest{Quantity: 1}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.ProductID == "" {
		s.respondError(w, r, cart.ErrInvalidProduct)
		return
	}
	product, err := s.Catalog.Get(req.ProductID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	change, err := s.Carts.AddItem(r.Context(), middleware.CartSessionID(r.Context()), product, req.Quantity)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK, &change)
}

func (s *Server) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	change, err := s.Carts.UpdateQuantity(r.Context(), middleware.CartSessionID(r.Context()), r.PathValue("productId"), req.Quantity)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK, &change)
}

func (s *Server) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	if err := s.Carts.RemoveItem(r.Context(), middleware.CartSessionID(r.Context()), r.PathValue("productId")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK, nil)
}

func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.Carts.Clear(r.Context(), middleware.CartSessionID(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK, nil)
}

// ApplyCoupon stores the code on the cart when it validates. An invalid code
// is answered with 422 and the validation reason.
func (s *Server) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	v, err := s.Carts.ApplyCoupon(ctx, middleware.CartSessionID(ctx), req.Code, middleware.GetUserID(ctx))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !v.Valid {
		respondJSON(w, http.StatusUnprocessableEntity, v)
		return
	}
	s.writeCart(w, r, http.StatusOK, nil)
}

func (s *Server) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	if err := s.Carts.RemoveCoupon(r.Context(), middleware.CartSessionID(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK, nil)
}

// Coupon Handlers

type ValidateCouponRequest struct {
	Code     string `json:"code"`
	Subtotal int    `json:"subtotal"`
}

// ValidateCoupon checks a code against a subtotal without touching the cart.
func (s *Server) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	discount, v, err := s.Coupons.Quote(ctx, req.Code, req.Subtotal, middleware.GetUserID(ctx))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"valid":    v.Valid,
		"reason":   v.Reason,
		"message":  v.Message,
		"discount": discount,
	})
}

func (s *Server) ListMyCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := s.Coupons.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if coupons == nil {
		coupons = []coupon.Coupon{}
	}
	respondJSON(w, http.StatusOK, coupons)
}
