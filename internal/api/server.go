package api

import (
	"context"
	"time"

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
	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/query"
)

// OAuthProvider runs the Kakao authorization code flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (user.Profile, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Options are the HTTP-facing settings taken from config.
type Options struct {
	// PublicURL is the storefront origin the OAuth callback redirects to.
	PublicURL         string
	SecureCookies     bool
	AdminPasswordHash string
}

// Deps is everything the HTTP layer calls into.
type Deps struct {
	Catalog  *catalog.Catalog
	Query    *query.Handler
	Carts    *cart.Service
	Checkout *checkout.Finalizer
	Orders   *order.Service
	Intents  order.IntentRepository
	Coupons  *coupon.Registry
	Users    *user.Service
	Settings *settings.Service
	Ledger   *inventory.Ledger
	Reviews  *review.Service
	Wishlist *wishlist.Service
	Events   store.EventStoreInterface
	Tokens   *auth.JWTService
	OAuth    OAuthProvider
	DB       Pinger
	Options  Options
	Logger   *zap.Logger
}

// Server holds the handlers for every /api route.
type Server struct {
	Deps
	logger *zap.Logger
	now    func() time.Time
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Deps: d, logger: logger.Named("api"), now: time.Now}
}
