package daraja

import (
	"errors"
	"fmt"
)

const (
	// Gateway rejected the access token (HTTP 401 or an explicit
	// "Invalid Access Token" error message)
	CodeAuth = "auth"
	// Gateway rejected the request for any other reason
	CodeGateway = "gateway"
	// Request never got a gateway response (network error, bad request build)
	CodeTransport = "transport"
)

// Error classifies a failed gateway call so callers can decide whether the
// operation is worth retrying with a fresh token
type Error struct {
	Code       string
	StatusCode int

	// Upstream error description. May repeat what the gateway sent, so it is
	// for diagnostics only and must not be echoed to API clients
	Detail string

	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %s, status: %d, detail: %s, error: %v", e.Code, e.StatusCode, e.Detail, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code string, statusCode int, detail string, err error) *Error {
	return &Error{
		Code:       code,
		StatusCode: statusCode,
		Detail:     detail,
		Err:        err,
	}
}

// IsAuthError reports whether err is a gateway error caused by an invalid or
// expired access token
func IsAuthError(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Code == CodeAuth
}
