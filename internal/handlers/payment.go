package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perontips/backend/internal/apperrors"
	"github.com/perontips/backend/internal/handlers/render"
	"github.com/perontips/backend/internal/logger"
	"github.com/perontips/backend/internal/models"
	"github.com/perontips/backend/internal/service/daraja"
)

const listPaymentsLimit = 50

type paymentService interface {
	Initiate(ctx context.Context, phone string) (models.Payment, error)
	ConfirmCallback(ctx context.Context, cb daraja.STKCallback) error
	ListRecent(ctx context.Context, limit int) ([]models.Payment, error)
}

type PaymentHandler struct {
	service paymentService

	// Frontend URL returned to the client after the push request is accepted
	accessURL string

	logger logger.Logger
}

func NewPayment(service paymentService, accessURL string, l logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		accessURL: accessURL,
		logger:    l,
	}
}

func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	type PayRequest struct {
		Phone string `json:"phone" validate:"required,msisdn"`
	}
	type PaySuccessResponse struct {
		Success   bool   `json:"success"`
		AccessURL string `json:"accessUrl"`
	}

	data, err := render.BindAndValidate[PayRequest](w, r)
	if err != nil {
		return
	}

	payment, err := h.service.Initiate(r.Context(), data.Phone)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrPhoneRequired):
			render.ServiceError(w, "Phone number is required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUpstreamAuth):
			h.logger.Error("Token issuance failed", "error", err)
			render.ServiceError(w, "Payment failed", http.StatusInternalServerError)
		default:
			h.logger.Error("Payment initiation failed", "error", err)
			render.ServiceError(w, "Payment failed", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("Push payment accepted",
		"checkout_request_id", payment.CheckoutRequestID,
	)
	render.JSON(w, PaySuccessResponse{Success: true, AccessURL: h.accessURL})
}

// Callback always acknowledges with 200: the gateway treats anything else as
// a delivery failure and keeps retrying
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	type CallbackResponse struct {
		Message string `json:"message"`
	}
	ack := func() {
		render.JSON(w, CallbackResponse{Message: "Callback received successfully"})
	}

	var envelope daraja.CallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Warn("Undecodable callback payload", "error", err)
		ack()
		return
	}

	if err := h.service.ConfirmCallback(r.Context(), envelope.Body.STKCallback); err != nil {
		h.logger.Error("Failed to process callback", "error", err)
	}

	ack()
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	type PaymentResponse struct {
		ID                string          `json:"id"`
		CheckoutRequestID string          `json:"checkout_request_id"`
		Phone             string          `json:"phone"`
		Amount            decimal.Decimal `json:"amount"`
		Status            string          `json:"status"`
		ResultDescription string          `json:"result_description,omitempty"`
		MpesaReceipt      string          `json:"mpesa_receipt,omitempty"`
		CreatedAt         time.Time       `json:"created_at"`
	}
	type ListResponse struct {
		Success  bool              `json:"success"`
		Payments []PaymentResponse `json:"payments"`
	}

	payments, err := h.service.ListRecent(r.Context(), listPaymentsLimit)
	if err != nil {
		h.logger.Error("Failed to list payments", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	res := ListResponse{Success: true, Payments: make([]PaymentResponse, 0, len(payments))}
	for _, p := range payments {
		res.Payments = append(res.Payments, PaymentResponse{
			ID:                p.ID.String(),
			CheckoutRequestID: p.CheckoutRequestID,
			Phone:             p.Phone,
			Amount:            p.Amount,
			Status:            p.Status,
			ResultDescription: p.ResultDescription,
			MpesaReceipt:      p.MpesaReceipt,
			CreatedAt:         p.CreatedAt,
		})
	}

	render.JSON(w, res)
}
