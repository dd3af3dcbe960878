package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidOTP      = errors.New("invalid otp")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrTooManyRequests = errors.New("too many requests")
	ErrDelivery        = errors.New("delivery failed")
)
