// Package apperr holds the error taxonomy shared by the account services.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidPlan         = errors.New("invalid plan")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrTransient           = errors.New("store unavailable")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Invalid returns an ErrInvalidInput carrying a field-level message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// FromStore maps a gorm error onto the taxonomy. op names the failed operation.
func FromStore(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
	}
}
