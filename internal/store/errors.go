package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqNotNullViolation    = "23502"
	pqCheckViolation      = "23514"
)

func ClassifyError(err error) ErrorClass {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		}
	}
	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// classifiedError carries a sentinel kind and the driver error behind it.
// Its message leaves out the driver text.
type classifiedError struct {
	msg   string
	kind  error
	cause error
}

func classified(cause, kind error, msg string) error {
	return &classifiedError{msg: msg, kind: kind, cause: cause}
}

func (e *classifiedError) Error() string { return e.msg }

func (e *classifiedError) Unwrap() []error { return []error{e.kind, e.cause} }

// translate maps driver errors onto the store's sentinel errors, keeping the
// original error in the chain.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return classified(err, ErrNotFound, what+": "+ErrNotFound.Error())
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return classified(err, ErrConflict, fmt.Sprintf("%s: %v (%s)", what, ErrConflict, pqErr.Constraint))
		case pqForeignKeyViolation:
			return classified(err, ErrConflict, fmt.Sprintf("%s: %v: referenced by or referencing another row (%s)", what, ErrConflict, pqErr.Constraint))
		case pqCheckViolation, pqNotNullViolation:
			return classified(err, ErrInvalidInput, fmt.Sprintf("%s: %v (%s)", what, ErrInvalidInput, pqErr.Constraint))
		}
	}

	return fmt.Errorf("%s: %w", what, err)
}
