package api

import (
	"net/http"

	"github.com/example/nazareth-shop/internal/api/middleware"
	"github.com/example/nazareth-shop/internal/domain/order"
)

// Order Handlers

func (s *Server) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusForbidden, "customer session required")
		return
	}
	orders, err := s.Orders.ListForUser(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// GetOrder serves the owner, the admin, or a guest who supplies the phone
// number the order was shipped to.
func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	var (
		o   *order.Order
		err error
	)
	claims, signedIn := middleware.GetUserFromContext(ctx)
	switch {
	case signedIn && claims.IsAdmin():
		o, err = s.Orders.Get(ctx, id)
	case signedIn:
		o, err = s.Orders.GetForUser(ctx, id, claims.UserID)
	default:
		phone := r.URL.Query().Get("phone")
		if phone == "" {
			respondMessage(w, http.StatusUnauthorized, "sign in or provide the order phone number")
			return
		}
		o, err = s.Orders.GetForGuest(ctx, id, phone)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
