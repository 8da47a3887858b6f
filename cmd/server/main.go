package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salonpay-be/internal/config"
	"salonpay-be/internal/db"
	"salonpay-be/internal/events"
	"salonpay-be/internal/handler"
	"salonpay-be/internal/idempotency"
	"salonpay-be/internal/logger"
	"salonpay-be/internal/payment"
	"salonpay-be/internal/payment/stripe"
	"salonpay-be/internal/payment/tabby"
	"salonpay-be/internal/payment/tamara"
	"salonpay-be/internal/payment/webhook"
)

const shutdownTimeout = 30 * time.Second

// Swappable in tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var database *sql.DB
	if cfg.HasDatabase() {
		database = initDBFunc(cfg)
	} else {
		logger.L().Warn("DB_HOST/DB_NAME not set, payments and webhooks will not be persisted")
	}

	router, cleanup := newServer(cfg, database)
	defer cleanup()

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("payment server listening", zap.String("addr", srv.Addr))
		errCh <- startServerFunc(srv)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-quit:
		logger.L().Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// newServer builds the router and everything behind it. database may be
// nil. The returned func releases the publisher and the database.
func newServer(cfg *config.Config, database *sql.DB) (*gin.Engine, func()) {
	log := logger.L()

	svc := payment.NewService(
		stripe.New(cfg.Stripe),
		tamara.New(cfg.Tamara, cfg.Checkout),
		tabby.New(cfg.Tabby, cfg.Checkout),
	)
	log.Info("payment providers", zap.Any("enabled", svc.AvailableProviders()))

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)

	cache, err := idempotency.New(cfg.RedisAddr, cfg.RedisPassword, idempotency.DefaultTTL)
	if err != nil {
		log.Warn("redis unavailable, using in-memory checkout cache", zap.Error(err))
	}

	opts := []handler.Option{handler.WithCache(cache)}
	var store webhook.Store
	if database != nil {
		repo := payment.NewRepository(database)
		store = repo
		opts = append(opts, handler.WithRepository(repo))
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, admin payment routes will reject every request")
	}

	h := handler.NewPaymentHandler(svc, webhook.NewDispatcher(store, publisher), opts...)
	router := handler.NewRouter(h, []byte(cfg.JWTSecret))

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", zap.Error(err))
		}
		if database != nil {
			_ = database.Close()
		}
	}
	return router, cleanup
}
