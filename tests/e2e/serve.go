package e2e

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/perontips/backend/internal/handlers"
	"github.com/perontips/backend/internal/logger"
	"github.com/perontips/backend/internal/repository/postgres"
	"github.com/perontips/backend/internal/service/daraja"
	"github.com/perontips/backend/internal/service/payment"
	"github.com/perontips/backend/internal/testutil"
)

const AccessURL = "https://perontips-frontend.vercel.app/"

type Services struct {
	PaymentService *payment.Service
	TokenCache     *daraja.TokenCache
	PaymentRepo    *postgres.PaymentRepo
}

// Create db transaction and run the backend with that connection, pointed at
// the given fake gateway (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use
// testutil.WithTx with it
func ServeWithTx(dbpool *pgxpool.Pool, gatewayHandler http.Handler, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		log := logger.NewNoOpLogger()

		// Fake gateway standing in for Daraja
		gateway := httptest.NewServer(gatewayHandler)
		defer gateway.Close()

		// Initialize repositories
		paymentRepo := &postgres.PaymentRepo{DB: tx}

		// Initialize gateway client, token cache and payment service
		client := daraja.NewClient(daraja.Config{
			BaseURL:        gateway.URL,
			ConsumerKey:    "test-key",
			ConsumerSecret: "test-secret",
			Shortcode:      "174379",
			Passkey:        "test-passkey",
			CallbackURL:    "https://backend.example.com/callback",
		}, log)
		tokens := daraja.NewTokenCache(client)

		ps := payment.NewService(payment.Config{
			Amount:           decimal.NewFromInt(20),
			AccountReference: "PeronTips",
			Description:      "Betting Prediction",
		}, client, tokens, paymentRepo, log)

		// Complete all together as router
		router := handlers.NewRouter(handlers.NewPayment(ps, AccessURL, log), log)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			PaymentService: ps,
			TokenCache:     tokens,
			PaymentRepo:    paymentRepo,
		})
	})
}
