package service

import (
	"errors"
	"fmt"

	"shoestore/internal/store"
)

// Error kinds returned by the services. Callers match them with errors.Is;
// anything else is an internal failure.
var (
	ErrNotFound          = store.ErrNotFound
	ErrConflict          = store.ErrConflict
	ErrInvalidInput      = store.ErrInvalidInput
	ErrInsufficientStock = store.ErrInsufficientStock
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// IsDomainError reports whether err is one of the expected kinds rather than
// an internal failure.
func IsDomainError(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrConflict, ErrInvalidInput, ErrInsufficientStock,
		ErrUnauthenticated, ErrForbidden,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
