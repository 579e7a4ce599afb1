package api

import (
	"net/http"
	"strconv"

	"github.com/example/nazareth-shop/internal/api/middleware"
	"github.com/example/nazareth-shop/internal/domain/catalog"
	"github.com/example/nazareth-shop/internal/domain/review"
)

// Product Handlers

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.Filter{
		Category: catalog.Category(q.Get("category")),
		Query:    q.Get("q"),
	}
	if featured, err := strconv.ParseBool(q.Get("featured")); err == nil {
		filter.Featured = featured
	}

	products, err := s.Query.ListProducts(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GetProduct also records the view for the browsing session.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	product, err := s.Query.GetProduct(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.Query.RecordView(r.Context(), middleware.CartSessionID(r.Context()), id)
	respondJSON(w, http.StatusOK, product)
}

func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Catalog.Categories())
}

func (s *Server) RecentlyViewed(w http.ResponseWriter, r *http.Request) {
	products, err := s.Query.RecentlyViewed(r.Context(), middleware.CartSessionID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// Review Handlers

func (s *Server) ListReviews(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.Catalog.Exists(id) {
		s.respondError(w, r, catalog.ErrProductNotFound)
		return
	}
	summary, err := s.Reviews.ForProduct(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusForbidden, "customer session required")
		return
	}

	var req CreateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	u, err := s.Users.Get(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.Reviews.Add(r.Context(), review.NewReview{
		ProductID: r.PathValue("id"),
		UserID:    userID,
		Author:    u.Name,
		Rating:    req.Rating,
		Title:     req.Title,
		Content:   req.Content,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) MarkReviewHelpful(w http.ResponseWriter, r *http.Request) {
	helpful, err := s.Reviews.MarkHelpful(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"helpful": helpful})
}

// Wishlist Handlers

func (s *Server) ListWishlist(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusForbidden, "customer session required")
		return
	}
	items, err := s.Wishlist.List(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusForbidden, "customer session required")
		return
	}
	productID := r.PathValue("productId")
	inWishlist, err := s.Wishlist.Toggle(r.Context(), userID, productID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"productId": productID, "inWishlist": inWishlist})
}
