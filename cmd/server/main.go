package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/daho-labs/payflow/internal/adapter/gateway"
	"github.com/daho-labs/payflow/internal/adapter/handler"
	"github.com/daho-labs/payflow/internal/adapter/storage"
	"github.com/daho-labs/payflow/internal/config"
	"github.com/daho-labs/payflow/internal/core/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "payflow").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mysql")
	}
	logger.Info().Msg("connected to mysql")

	if err := storage.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Msg("migrations applied")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	logger.Info().Msg("connected to redis")

	// Adapters
	ledger := storage.NewMySQLLedger(db)
	sessions := storage.NewRedisSessions(rdb)
	pg := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayAPISecret, cfg.GatewayTimeout)

	payments := service.NewPaymentService(ledger, pg, logger, cfg.AlertQueueSize)

	// Security worker: drains tamper alerts off the webhook path.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for alert := range payments.Alerts() {
			logger.Error().
				Str("order_id", alert.OrderID).
				Str("merchant_ref", alert.MerchantRef).
				Str("tx_id", alert.TxID).
				Int64("expected_amount", alert.ExpectedAmount).
				Int64("reported_amount", alert.ReportedAmount).
				Time("at", alert.At).
				Msg("amount mismatch, possible tampering")
		}
	}()

	// HTTP
	httpHandler := handler.NewPaymentHandler(payments, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(handler.CORS)

	r.Get("/health", httpHandler.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(handler.Auth(sessions, logger))
		r.Post("/orders", httpHandler.CreateOrder)
		r.Post("/payments/refund", httpHandler.RefundPayment)
	})

	// The webhook carries no session; the gateway lookup is its
	// authentication.
	r.Post("/payments/confirm", httpHandler.ConfirmPayment)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info().Msg("http server stopped")

	payments.Close()
	wg.Wait()
	logger.Info().Msg("workers stopped")

	rdb.Close()
	db.Close()
	logger.Info().Msg("connections closed")
}
