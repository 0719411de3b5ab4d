package repository

import (
	"context"
	"time"

	"github.com/perontips/backend/internal/models"
)

// Payment registry repository interface
type PaymentRepo interface {
	// Create pending payment record
	// If a payment with the same checkout id exists already has to return
	// apperrors.ErrPaymentAlreadyExists
	CreatePayment(ctx context.Context, payment models.Payment) (models.Payment, error)

	// Get payment by the gateway issued checkout request id
	// If payment not found must return apperrors.ErrPaymentNotFound
	GetByCheckoutID(ctx context.Context, checkoutID string) (models.Payment, error)

	// Move payment from PENDING to the given terminal status
	// Terminal states are immutable: if the payment is already finalized must
	// return apperrors.ErrPaymentFinalized and keep the stored result as is
	SetResult(ctx context.Context, checkoutID string, status string, resultCode int32, resultDesc string, receipt string) (models.Payment, error)

	// List payments ordered by creation time, newest first
	ListRecent(ctx context.Context, limit int) ([]models.Payment, error)

	// Finalize as FAILED every PENDING payment created before the deadline.
	// Returns the number of payments expired
	FailStale(ctx context.Context, olderThan time.Time, resultDesc string) (int64, error)
}
