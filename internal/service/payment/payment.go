package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/perontips/backend/internal/apperrors"
	"github.com/perontips/backend/internal/logger"
	"github.com/perontips/backend/internal/models"
	"github.com/perontips/backend/internal/repository"
	"github.com/perontips/backend/internal/service/daraja"
)

type gateway interface {
	STKPush(ctx context.Context, token string, params daraja.STKPushParams) (daraja.STKPushResponse, error)
}

type tokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

type Config struct {
	// Fixed transaction options, shared by every initiated payment
	Amount           decimal.Decimal
	AccountReference string
	Description      string
}

// Service drives a push payment end to end: derive the signed request, submit
// it through the gateway client and register the accepted payment until the
// settlement callback (or a timeout) finalizes it
type Service struct {
	cfg      Config
	gateway  gateway
	tokens   tokenProvider
	payments repository.PaymentRepo
	logger   logger.Logger
}

func NewService(cfg Config, gateway gateway, tokens tokenProvider, payments repository.PaymentRepo, l logger.Logger) *Service {
	return &Service{
		cfg:      cfg,
		gateway:  gateway,
		tokens:   tokens,
		payments: payments,
		logger:   l,
	}
}

// Initiate submits a push payment for the phone number. A nil error means the
// gateway accepted the request, not that the customer paid: the settlement
// outcome arrives later through ConfirmCallback
func (s *Service) Initiate(ctx context.Context, phone string) (models.Payment, error) {
	var payment models.Payment

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return payment, apperrors.ErrPhoneRequired
	}

	pushed, err := s.push(ctx, daraja.STKPushParams{
		Phone:            phone,
		Amount:           s.cfg.Amount,
		AccountReference: s.cfg.AccountReference,
		Description:      s.cfg.Description,
	})
	if err != nil {
		return payment, err
	}

	payment = models.Payment{
		CheckoutRequestID: pushed.CheckoutRequestID,
		MerchantRequestID: pushed.MerchantRequestID,
		Phone:             phone,
		Amount:            s.cfg.Amount,
		AccountReference:  s.cfg.AccountReference,
		Status:            models.PaymentPending,
	}

	created, err := s.payments.CreatePayment(ctx, payment)
	if err != nil {
		// The push is already in flight, so the request itself succeeded.
		// Losing the registry record only means the callback won't correlate
		s.logger.Error("Failed to register pending payment",
			"error", err, "checkout_request_id", payment.CheckoutRequestID)
		return payment, nil
	}

	return created, nil
}

// push submits the request, refreshing the token and retrying exactly once
// when the gateway rejects the presented token
func (s *Service) push(ctx context.Context, params daraja.STKPushParams) (daraja.STKPushResponse, error) {
	var pushed daraja.STKPushResponse

	for attempt := 0; ; attempt++ {
		token, err := s.tokens.Token(ctx)
		if err != nil {
			return pushed, fmt.Errorf("%w: %w", apperrors.ErrUpstreamAuth, err)
		}

		pushed, err = s.gateway.STKPush(ctx, token, params)

		switch {
		case err == nil:
			return pushed, nil

		case daraja.IsAuthError(err) && attempt == 0:
			s.logger.Warn("Access token rejected by gateway, refreshing and retrying")
			s.tokens.Invalidate()

		default:
			return pushed, fmt.Errorf("%w: %w", apperrors.ErrUpstreamPayment, err)
		}
	}
}

// ConfirmCallback finalizes the pending payment the settlement notification
// belongs to. Unknown and repeated notifications are logged and dropped: the
// HTTP layer acknowledges the gateway regardless
func (s *Service) ConfirmCallback(ctx context.Context, cb daraja.STKCallback) error {
	status := models.PaymentFailed
	if cb.Succeeded() {
		status = models.PaymentConfirmed
	}

	payment, err := s.payments.SetResult(ctx, cb.CheckoutRequestID, status, cb.ResultCode, cb.ResultDesc, cb.Receipt())

	switch {
	case err == nil:
		s.logger.Info("Payment finalized",
			"checkout_request_id", payment.CheckoutRequestID,
			"status", payment.Status,
			"result_code", cb.ResultCode,
		)
		return nil

	case errors.Is(err, apperrors.ErrPaymentNotFound):
		s.logger.Warn("Callback for unknown payment", "checkout_request_id", cb.CheckoutRequestID)
		return nil

	case errors.Is(err, apperrors.ErrPaymentFinalized):
		s.logger.Warn("Callback for already finalized payment",
			"checkout_request_id", cb.CheckoutRequestID, "status", payment.Status)
		return nil

	default:
		return fmt.Errorf("failed to finalize payment: %w", err)
	}
}

// ListRecent returns the newest payment records from the registry
func (s *Service) ListRecent(ctx context.Context, limit int) ([]models.Payment, error) {
	return s.payments.ListRecent(ctx, limit)
}
