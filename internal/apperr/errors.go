// Package apperr defines the error kinds shared by the services and the HTTP
// layer. Specific errors wrap one of the kinds so handlers can map them to a
// status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// Kinds.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("unauthorized")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage error")
	ErrDelivery   = errors.New("delivery error")
)

var (
	ErrVisitorNotFound    = fmt.Errorf("visitor %w", ErrNotFound)
	ErrTicketTypeNotFound = fmt.Errorf("ticket type %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrReportNotFound     = fmt.Errorf("report %w", ErrNotFound)

	ErrInvalidReportType  = fmt.Errorf("%w: invalid report type", ErrValidation)
	ErrMissingCustomRange = fmt.Errorf("%w: custom report requires start and end dates", ErrValidation)

	// ErrInvalidCredentials covers unknown user, wrong password and inactive
	// account alike.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuth)

	ErrReportDelivery = fmt.Errorf("%w: failed to send report by email", ErrDelivery)
)

// Validation wraps a descriptive message as a validation error.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storage marks err as a storage failure while keeping it in the chain.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
