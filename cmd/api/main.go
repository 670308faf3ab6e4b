package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/httpapi"
	"github.com/safar/go-storefront/internal/logger"
	"github.com/safar/go-storefront/internal/metrics"
	"github.com/safar/go-storefront/internal/payment"
	"github.com/safar/go-storefront/internal/session"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Init logger: %v", err)
	}
	defer zl.Sync()

	if cfg.Log.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.Database.URL, database.MigrateUp); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	zl.Info("connected to database")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		zl.Fatal("invalid redis url", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zl.Fatal("failed to connect to redis", zap.Error(err))
	}
	zl.Info("connected to redis")

	if cfg.Payment.StripeSecretKey == "" {
		zl.Warn("STRIPE_SECRET_KEY is not set, checkout will fail")
	}
	baseURL := cfg.Payment.PublicBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.Server.Port
	}

	repo := store.NewRepository(db)
	m := metrics.New()
	validate := validation.New()
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	provider := payment.NewBreaker(payment.NewStripe(cfg.Payment.StripeSecretKey), zl)

	checkoutService := checkout.NewService(
		repo,
		repo,
		checkout.NewRedisSnapshots(rdb, cfg.Redis.SnapshotTTL),
		provider,
		checkout.Config{
			Currency:     cfg.Payment.Currency,
			MinimumTotal: cfg.Payment.MinimumTotal,
			BaseURL:      baseURL,
		},
		zl,
		m,
	)

	h := httpapi.NewHandler(httpapi.Deps{
		Store:    repo,
		Carts:    cart.NewRedisStore(rdb, cfg.Redis.CartTTL),
		Flashes:  session.NewFlashes(rdb, cfg.Redis.FlashTTL),
		Checkout: checkoutService,
		Accounts: auth.NewService(repo, tokens, validate, zl),
		Tokens:   tokens,
		Validate: validate,
		Logger:   zl,
	}, httpapi.Options{
		AuthCookieName: cfg.Auth.CookieName,
		SecureCookies:  cfg.Auth.SecureCookie,
		SessionTTL:     cfg.Redis.CartTTL,
		AdminAPIKey:    cfg.Admin.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	router := httpapi.NewRouter(h, m, map[string]httpapi.HealthCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
