package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// Gateway accepted the push request, waiting for the settlement callback
	PaymentPending = "PENDING"
	// Settlement callback reported success
	PaymentConfirmed = "CONFIRMED"
	// Settlement callback reported failure, or the payment timed out
	PaymentFailed = "FAILED"
)

// Payment is a single push-payment attempt tracked from gateway acceptance
// until the settlement callback (or timeout) finalizes it.
type Payment struct {
	ID                uuid.UUID
	CheckoutRequestID string
	MerchantRequestID string
	Phone             string
	Amount            decimal.Decimal
	AccountReference  string
	Status            string
	ResultCode        *int32 // nil until the callback arrives
	ResultDescription string
	MpesaReceipt      string
	CreatedAt         time.Time
	ModifiedAt        time.Time
}

// Finalized reports whether the payment reached a terminal state
func (p Payment) Finalized() bool {
	return p.Status == PaymentConfirmed || p.Status == PaymentFailed
}
