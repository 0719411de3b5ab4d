package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/perontips/backend/internal/apperrors"
	"github.com/perontips/backend/internal/models"
)

type PaymentRepo struct {
	DB DBTX
}

const createPayment = `-- name: CreatePayment
INSERT INTO payments (id, checkout_request_id, merchant_request_id, phone, amount, account_reference, status, result_code, result_description, mpesa_receipt, created_at, modified_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id, checkout_request_id, merchant_request_id, phone, amount, account_reference, status, result_code, result_description, mpesa_receipt, created_at, modified_at
`

func (r *PaymentRepo) CreatePayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	now := time.Now()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.ModifiedAt.IsZero() {
		p.ModifiedAt = now
	}

	rows, _ := r.DB.Query(ctx, createPayment,
		p.ID, p.CheckoutRequestID, p.MerchantRequestID, p.Phone, p.Amount,
		p.AccountReference, p.Status, p.ResultCode, p.ResultDescription,
		p.MpesaReceipt, p.CreatedAt, p.ModifiedAt,
	)
	payment, err := pgx.CollectOneRow(rows, rowToPayment)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return payment, apperrors.ErrPaymentAlreadyExists
		}
		return payment, fmt.Errorf("db error: %w", err)
	}

	return payment, nil
}

const getPaymentByCheckoutID = `-- name: GetPaymentByCheckoutID
SELECT id, checkout_request_id, merchant_request_id, phone, amount, account_reference, status, result_code, result_description, mpesa_receipt, created_at, modified_at
FROM payments
WHERE checkout_request_id = $1
`

func (r *PaymentRepo) GetByCheckoutID(ctx context.Context, checkoutID string) (models.Payment, error) {
	rows, _ := r.DB.Query(ctx, getPaymentByCheckoutID, checkoutID)
	payment, err := pgx.CollectOneRow(rows, rowToPayment)

	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return payment, apperrors.ErrPaymentNotFound
	}

	return payment, err
}

// Finalize pending payment
// Guard on status keeps terminal states immutable even when callbacks arrive twice
const setPaymentResult = `-- name: SetPaymentResult
UPDATE payments
SET status = $2, result_code = $3, result_description = $4, mpesa_receipt = $5, modified_at = $6
WHERE checkout_request_id = $1 AND status = 'PENDING'
RETURNING id, checkout_request_id, merchant_request_id, phone, amount, account_reference, status, result_code, result_description, mpesa_receipt, created_at, modified_at
`

func (r *PaymentRepo) SetResult(ctx context.Context, checkoutID string, status string, resultCode int32, resultDesc string, receipt string) (models.Payment, error) {
	rows, _ := r.DB.Query(ctx, setPaymentResult, checkoutID, status, resultCode, resultDesc, receipt, time.Now())
	payment, err := pgx.CollectOneRow(rows, rowToPayment)

	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		// Either the payment is unknown or already finalized, look it up to tell apart
		payment, err = r.GetByCheckoutID(ctx, checkoutID)
		if err != nil {
			return payment, err
		}
		return payment, apperrors.ErrPaymentFinalized
	}

	return payment, err
}

const listRecentPayments = `-- name: ListRecentPayments
SELECT id, checkout_request_id, merchant_request_id, phone, amount, account_reference, status, result_code, result_description, mpesa_receipt, created_at, modified_at
FROM payments
ORDER BY created_at DESC
LIMIT $1
`

func (r *PaymentRepo) ListRecent(ctx context.Context, limit int) ([]models.Payment, error) {
	rows, _ := r.DB.Query(ctx, listRecentPayments, limit)
	payments, err := pgx.CollectRows(rows, rowToPayment)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return payments, nil
}

const failStalePayments = `-- name: FailStalePayments
UPDATE payments
SET status = 'FAILED', result_description = $2, modified_at = $3
WHERE status = 'PENDING' AND created_at < $1
`

func (r *PaymentRepo) FailStale(ctx context.Context, olderThan time.Time, resultDesc string) (int64, error) {
	tag, err := r.DB.Exec(ctx, failStalePayments, olderThan, resultDesc, time.Now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

func rowToPayment(row pgx.CollectableRow) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID, &p.CheckoutRequestID, &p.MerchantRequestID, &p.Phone, &p.Amount,
		&p.AccountReference, &p.Status, &p.ResultCode, &p.ResultDescription,
		&p.MpesaReceipt, &p.CreatedAt, &p.ModifiedAt,
	)
	return p, err
}
