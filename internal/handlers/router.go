package handlers

import (
	"net/http"

	"github.com/perontips/backend/internal/handlers/middleware"
	"github.com/perontips/backend/internal/handlers/render"
	"github.com/perontips/backend/internal/logger"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(payments *PaymentHandler, l logger.Logger) http.Handler {
	root := http.NewServeMux()

	root.HandleFunc("GET /{$}", handleLiveness)
	root.HandleFunc("GET /api/predictions", handlePredictions)

	root.HandleFunc("POST /pay", payments.Pay)
	root.HandleFunc("POST /callback", payments.Callback)
	root.HandleFunc("GET /api/payments", payments.List)

	handler := chain(root,
		middleware.LoggerMiddleware(l),
	)

	return handler
}

func handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server is running..."))
}

// Predictions are served elsewhere, the route is kept as a stub the frontend
// can probe
func handlePredictions(w http.ResponseWriter, r *http.Request) {
	type PredictionsResponse struct {
		Message string `json:"message"`
	}

	render.JSON(w, PredictionsResponse{Message: "Predictions endpoint working"})
}
