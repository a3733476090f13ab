package apperr

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNoGatewayReference   = errors.New("no gateway reference recorded")
	ErrTooLarge             = errors.New("payment proof too large")
	ErrUnsupportedMediaType = errors.New("payment proof must be an image")
)
