package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/marketplace-backend/internal/cart"
	"github.com/andreasstove999/marketplace-backend/internal/catalog"
	"github.com/andreasstove999/marketplace-backend/internal/config"
	"github.com/andreasstove999/marketplace-backend/internal/db"
	"github.com/andreasstove999/marketplace-backend/internal/events"
	httpapi "github.com/andreasstove999/marketplace-backend/internal/http"
	"github.com/andreasstove999/marketplace-backend/internal/identity"
	"github.com/andreasstove999/marketplace-backend/internal/inventory"
	"github.com/andreasstove999/marketplace-backend/internal/order"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pgPool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pgPool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool := db.WrapPool(pgPool)

	// --- AMQP ---
	var publisher *events.Publisher
	if conn := dialRabbit(cfg.RabbitURL, logger); conn != nil {
		defer conn.Close()
		publisher, err = events.NewPublisher(conn)
		if err != nil {
			logger.Fatal("events publisher", zap.Error(err))
		}
		defer publisher.Close()
	}

	// --- upstream clients ---
	catalogClient := catalog.NewClient(cfg.CatalogURL, cfg.UpstreamTimeout)
	identityClient := identity.NewClient(cfg.IdentityURL, cfg.UpstreamTimeout)

	// --- domain wiring ---
	orderRepo := order.NewRepository(pool)
	cartRepo := cart.NewRepository(pool)
	stockRepo := inventory.NewPostgresRepository(pool)

	var pub order.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	orderSvc := order.NewService(pool, orderRepo, cartRepo, stockRepo, catalogClient, identityClient, pub, logger)
	cartSvc := cart.NewService(cartRepo, catalogClient, logger)

	// --- HTTP ---
	router := httpapi.NewRouter(
		httpapi.NewOrderHandler(orderSvc, logger),
		httpapi.NewCartHandler(cartSvc, logger),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()

	logger.Info("shutdown complete")
}

// dialRabbit returns nil when no broker is configured; the service then
// runs without publishing events.
func dialRabbit(url string, logger *zap.Logger) *amqp.Connection {
	if url == "" {
		logger.Warn("no rabbitmq url configured, events disabled")
		return nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Fatal("dial rabbitmq", zap.Error(err))
	}
	return conn
}
