package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/nazareth-shop/internal/api/middleware"
	"github.com/example/nazareth-shop/internal/auth"
)

func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// NewRouter wires every route. Sessions are resolved for all requests;
// routes that need a customer or the admin add their own guard.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()

	requireUser := middleware.AuthMiddleware(s.Tokens)
	requireAdmin := middleware.RequireRole(auth.RoleAdmin)

	mux.HandleFunc("GET /healthz", s.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Catalog
	mux.HandleFunc("GET /api/products", s.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", s.GetProduct)
	mux.HandleFunc("GET /api/categories", s.ListCategories)
	mux.HandleFunc("GET /api/recently-viewed", s.RecentlyViewed)

	// Reviews
	mux.HandleFunc("GET /api/products/{id}/reviews", s.ListReviews)
	mux.Handle("POST /api/products/{id}/reviews", chain(s.CreateReview, requireUser))
	mux.HandleFunc("POST /api/reviews/{id}/helpful", s.MarkReviewHelpful)

	// Wishlist
	mux.Handle("GET /api/wishlist", chain(s.ListWishlist, requireUser))
	mux.Handle("POST /api/wishlist/{productId}/toggle", chain(s.ToggleWishlist, requireUser))

	// Cart
	mux.HandleFunc("GET /api/cart", s.GetCart)
	mux.HandleFunc("DELETE /api/cart", s.ClearCart)
	mux.HandleFunc("POST /api/cart/items", s.AddToCart)
	mux.HandleFunc("PATCH /api/cart/items/{productId}", s.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", s.RemoveFromCart)
	mux.HandleFunc("POST /api/cart/coupon", s.ApplyCoupon)
	mux.HandleFunc("DELETE /api/cart/coupon", s.RemoveCoupon)

	// Coupons
	mux.HandleFunc("POST /api/coupons/validate", s.ValidateCoupon)
	mux.Handle("GET /api/coupons", chain(s.ListMyCoupons, requireUser))

	// Checkout
	mux.HandleFunc("POST /api/checkout/prepare", s.PrepareCheckout)
	mux.HandleFunc("POST /api/checkout/complete", s.CompleteCheckout)
	mux.HandleFunc("POST /api/payment/verify", s.VerifyPayment)

	// Orders
	mux.Handle("GET /api/orders", chain(s.ListMyOrders, requireUser))
	mux.HandleFunc("GET /api/orders/{id}", s.GetOrder)

	// Auth
	mux.HandleFunc("GET /api/auth/kakao/login", s.KakaoLogin)
	mux.HandleFunc("GET /api/auth/kakao/callback", s.KakaoCallback)
	mux.HandleFunc("GET /api/auth/me", s.Me)
	mux.HandleFunc("POST /api/auth/logout", s.Logout)
	mux.HandleFunc("POST /api/auth/admin/login", s.AdminLogin)

	// Admin
	mux.Handle("GET /api/admin/settings", chain(s.GetSettings, requireUser, requireAdmin))
	mux.Handle("PUT /api/admin/settings", chain(s.UpdateSettings, requireUser, requireAdmin))
	mux.Handle("GET /api/admin/stats", chain(s.Stats, requireUser, requireAdmin))
	mux.Handle("GET /api/admin/inventory", chain(s.ListInventory, requireUser, requireAdmin))
	mux.Handle("POST /api/admin/inventory/{id}/restock", chain(s.Restock, requireUser, requireAdmin))
	mux.Handle("GET /api/admin/orders", chain(s.ListAllOrders, requireUser, requireAdmin))
	mux.Handle("POST /api/admin/orders/{id}/status", chain(s.UpdateOrderStatus, requireUser, requireAdmin))
	mux.Handle("GET /api/admin/orders/{id}/events", chain(s.OrderEvents, requireUser, requireAdmin))
	mux.Handle("GET /api/admin/payments", chain(s.ListPaymentIntents, requireUser, requireAdmin))
	mux.Handle("POST /api/admin/payments/{merchantUid}/reconcile", chain(s.ReconcilePayment, requireUser, requireAdmin))

	var handler http.Handler = mux
	handler = middleware.Metrics(handler)
	handler = middleware.Logging(s.logger.Named("http"))(handler)
	handler = middleware.OptionalAuthMiddleware(s.Tokens)(handler)
	handler = middleware.CartSession(s.Options.SecureCookies)(handler)
	handler = middleware.Recoverer(s.logger)(handler)
	return handler
}
