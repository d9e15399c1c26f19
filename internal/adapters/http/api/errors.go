package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrLimitExceeded   = errors.New("limit exceeded")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// badRequest builds an ErrBadRequest carrying a reason.
func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
