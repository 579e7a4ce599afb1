package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/domain/settings"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

const defaultIntentListLimit = 100

// Settings

func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.Settings.Get(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var next settings.Settings
	if err := decodeJSON(w, r, &next); err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.Settings.Update(r.Context(), next)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.logger.Info("settings updated",
		zap.Bool("early_bird_enabled", saved.EarlyBirdEnabled),
		zap.Int("early_bird_discount", saved.EarlyBirdDiscount),
		zap.Bool("referral_enabled", saved.ReferralEnabled),
		zap.Int("referral_discount", saved.ReferralDiscount),
	)
	respondJSON(w, http.StatusOK, saved)
}

// Stats

func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Query.AdminStats(r.Context(), s.now())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Inventory

func (s *Server) ListInventory(w http.ResponseWriter, r *http.Request) {
	levels, err := s.Query.ListInventory(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, levels)
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) Restock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.Catalog.Exists(id) {
		respondMessage(w, http.StatusNotFound, "product not found")
		return
	}
	var req RestockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.Ledger.IncreaseStock(r.Context(), id, req.Quantity); err != nil {
		s.respondError(w, r, err)
		return
	}
	stock, err := s.Ledger.GetStock(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"productId": id, "stock": stock})
}

// Orders

func (s *Server) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := order.ListFilter{}
	if status := q.Get("status"); status != "" {
		st, err := order.ParseStatus(status)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		filter.Status = st
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	orders, err := s.Orders.List(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	target, err := order.ParseStatus(req.Status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	o, err := s.Orders.Transition(r.Context(), r.PathValue("id"), target, req.Reason)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.logger.Info("order status changed", zap.String("order_id", o.ID), zap.String("status", string(o.Status)))
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) OrderEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.Orders.Get(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	events, err := s.Events.GetEvents(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

// Payments

// ListPaymentIntents lists intents by status, defaulting to the ones that
// need attention.
func (s *Server) ListPaymentIntents(w http.ResponseWriter, r *http.Request) {
	statuses := []order.IntentStatus{order.IntentReview, order.IntentOpen}
	if raw := r.URL.Query().Get("status"); raw != "" {
		statuses = statuses[:0]
		for _, part := range strings.Split(raw, ",") {
			statuses = append(statuses, order.IntentStatus(strings.TrimSpace(part)))
		}
	}

	intents, err := s.Intents.ListByStatus(r.Context(), statuses, defaultIntentListLimit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if intents == nil {
		intents = []order.PaymentIntent{}
	}
	respondJSON(w, http.StatusOK, intents)
}

func (s *Server) ReconcilePayment(w http.ResponseWriter, r *http.Request) {
	merchantUID := r.PathValue("merchantUid")
	res, err := s.Checkout.Reconcile(r.Context(), merchantUID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.logger.Info("payment reconciled", zap.String("merchant_uid", merchantUID), zap.String("outcome", string(res.Outcome)))
	respondJSON(w, resultStatus(res), res)
}
