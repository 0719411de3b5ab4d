package apperrors

import (
	"errors"
)

var (
	// Caller input defects, surfaced as 4xx
	ErrPhoneRequired = errors.New("phone number required")

	// Gateway failures, surfaced as 5xx
	ErrUpstreamAuth    = errors.New("failed to obtain access token")
	ErrUpstreamPayment = errors.New("payment request rejected by gateway")

	// Pending payment registry
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment with checkout id already exists")
	ErrPaymentFinalized     = errors.New("payment already in terminal state")
)
