package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perontips/backend/internal/handlers"
	"github.com/perontips/backend/internal/logger"
	"github.com/perontips/backend/internal/repository"
	"github.com/perontips/backend/internal/repository/postgres"
	"github.com/perontips/backend/internal/service/daraja"
	"github.com/perontips/backend/internal/service/payment"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	reconciler *payment.Reconciler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Report presence of gateway credentials without the values themselves
	log.Info("Gateway configuration",
		"base_url", c.GatewayBaseURL,
		"consumer_key", loadedOrMissing(c.ConsumerKey),
		"consumer_secret", loadedOrMissing(c.ConsumerSecret),
		"shortcode", loadedOrMissing(c.Shortcode),
		"passkey", loadedOrMissing(c.Passkey),
		"callback_url", c.CallbackURL,
	)

	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid payment amount %q: %w", c.Amount, err)
	}

	// Connect to the database and run migrations
	pool, err := repository.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	paymentRepo := &postgres.PaymentRepo{DB: pool}

	// Initialize gateway client, token cache and payment service
	client := daraja.NewClient(daraja.Config{
		BaseURL:        c.GatewayBaseURL,
		ConsumerKey:    c.ConsumerKey,
		ConsumerSecret: c.ConsumerSecret,
		Shortcode:      c.Shortcode,
		Passkey:        c.Passkey,
		CallbackURL:    c.CallbackURL,
	}, log)
	tokens := daraja.NewTokenCache(client)

	paymentService := payment.NewService(payment.Config{
		Amount:           amount,
		AccountReference: c.AccountReference,
		Description:      c.TransactionDesc,
	}, client, tokens, paymentRepo, log)

	// Initialize handlers
	paymentHandler := handlers.NewPayment(paymentService, c.AccessURL, log)
	mux := handlers.NewRouter(paymentHandler, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		reconciler: payment.NewReconciler(c.PendingTimeout, paymentRepo, log),
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	// Expire stale pending payments in background while the server runs
	reconcilerStopped := s.reconciler.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-reconcilerStopped

	return err
}

func loadedOrMissing(value string) string {
	if value == "" {
		return "Missing"
	}
	return "Loaded"
}
