package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/api"
	"github.com/example/nazareth-shop/internal/auth"
	"github.com/example/nazareth-shop/internal/checkout"
	"github.com/example/nazareth-shop/internal/config"
	"github.com/example/nazareth-shop/internal/domain/cart"
	"github.com/example/nazareth-shop/internal/domain/catalog"
	"github.com/example/nazareth-shop/internal/domain/coupon"
	"github.com/example/nazareth-shop/internal/domain/inventory"
	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/domain/review"
	"github.com/example/nazareth-shop/internal/domain/settings"
	"github.com/example/nazareth-shop/internal/domain/user"
	"github.com/example/nazareth-shop/internal/domain/wishlist"
	"github.com/example/nazareth-shop/internal/infrastructure/cache"
	"github.com/example/nazareth-shop/internal/infrastructure/repository"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/logging"
	"github.com/example/nazareth-shop/internal/oauth"
	"github.com/example/nazareth-shop/internal/payment"
	"github.com/example/nazareth-shop/internal/query"
	"github.com/example/nazareth-shop/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// hashPassword prints the bcrypt hash to put in ADMIN_PASSWORD_HASH.
func hashPassword(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: api hash-password <password>")
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logging.Sync(logger)
	logger = logger.Named("api")

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	logger.Info("starting",
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("public_url", cfg.PublicURL),
	)

	db, err := store.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", zap.Int("products", len(cat.IDs())))

	var (
		idem   cache.IdempotencyStore
		recent query.RecentlyViewed
	)
	rdb, err := cache.Connect(ctx, cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		if cfg.IsProduction() {
			return err
		}
		logger.Warn("redis unavailable, using in-memory idempotency and recently viewed", zap.Error(err))
		idem = cache.NewMemoryIdempotency()
		recent = cache.NewMemoryRecentlyViewed()
	} else {
		defer rdb.Close()
		idem = cache.NewRedisIdempotency(rdb)
		recent = cache.NewRedisRecentlyViewed(rdb)
	}

	events := store.NewEventStore(db)
	ledger := inventory.NewLedger(repository.NewStockRepository(db), cat, events)
	coupons := coupon.NewRegistry(repository.NewCouponRepository(db), db, events)
	if n, err := coupons.SeedDefaults(ctx, time.Now()); err != nil {
		return fmt.Errorf("seed coupons: %w", err)
	} else if n > 0 {
		logger.Info("seeded catalog coupons", zap.Int("count", n))
	}
	carts := cart.NewService(repository.NewCartRepository(db), ledger, coupons)
	orders := order.NewService(repository.NewOrderRepository(db), db, ledger, events)
	intents := repository.NewIntentRepository(db)
	settingsSvc := settings.NewService(repository.NewSettingsRepository(db))
	users := user.NewService(repository.NewUserRepository(db), db, coupons, settingsSvc, events)

	gateway := payment.NewIamportClient(payment.ClientConfig{
		BaseURL:   cfg.Iamport.BaseURL,
		APIKey:    cfg.Iamport.APIKey,
		APISecret: cfg.Iamport.APISecret,
		Timeout:   cfg.Iamport.Timeout,
	}, logger)
	policy := payment.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Iamport.MaxAttempts
	policy.InitialBackoff = cfg.Iamport.InitialBackoff
	policy.MaxBackoff = cfg.Iamport.MaxBackoff
	verifier := payment.NewVerifier(gateway, policy, logger)

	finalizer := checkout.NewFinalizer(carts, ledger, coupons, orders, intents, verifier, db, idem, checkout.Options{
		RedirectURL: strings.TrimRight(cfg.PublicURL, "/") + "/order/complete",
		ResultTTL:   cfg.Redis.IdempotencyTTL,
	}, logger)

	kakao := oauth.NewKakaoClient(oauth.Config{
		ClientID:     cfg.Kakao.ClientID,
		ClientSecret: cfg.Kakao.ClientSecret,
		RedirectURI:  cfg.Kakao.RedirectURI,
		AuthURL:      cfg.Kakao.AuthURL,
		TokenURL:     cfg.Kakao.TokenURL,
		ProfileURL:   cfg.Kakao.ProfileURL,
		ChannelID:    cfg.Kakao.ChannelID,
	})

	if cfg.Admin.PasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin login disabled")
	}

	server := api.NewServer(api.Deps{
		Catalog:  cat,
		Query:    query.NewHandler(cat, ledger, repository.NewStatsRepository(db), recent, logger),
		Carts:    carts,
		Checkout: finalizer,
		Orders:   orders,
		Intents:  intents,
		Coupons:  coupons,
		Users:    users,
		Settings: settingsSvc,
		Ledger:   ledger,
		Reviews:  review.NewService(repository.NewReviewRepository(db), orders, cat),
		Wishlist: wishlist.NewService(repository.NewWishlistRepository(db), cat),
		Events:   events,
		Tokens:   auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.SessionTTL),
		OAuth:    kakao,
		DB:       db,
		Options: api.Options{
			PublicURL:         cfg.PublicURL,
			SecureCookies:     cfg.IsProduction(),
			AdminPasswordHash: cfg.Admin.PasswordHash,
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
