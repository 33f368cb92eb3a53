package engine

import (
	"errors"
	"fmt"
)

// ErrOrderNotFound is returned when no order matches an id or domain.
var ErrOrderNotFound = errors.New("order not found")

// ValidationError is a request the engine refused before writing anything.
type ValidationError struct {
	// Code identifies the rule that failed.
	Code ValidationCode

	// Message is a human-readable description.
	Message string

	// OrderID identifies the affected order. Empty for Create.
	OrderID string

	// Field names the offending input field, if any.
	Field string
}

// ValidationCode categorizes validation errors.
type ValidationCode string

const (
	// ErrCodeMissingField indicates a required input is absent.
	ErrCodeMissingField ValidationCode = "MISSING_FIELD"

	// ErrCodeInvalidField indicates an input has the wrong shape or value.
	ErrCodeInvalidField ValidationCode = "INVALID_FIELD"

	// ErrCodeQuotaExceeded indicates no free or unlocked paid edit is left.
	ErrCodeQuotaExceeded ValidationCode = "QUOTA_EXCEEDED"

	// ErrCodeQuotaAvailable indicates a paid edit was requested while free
	// edits remain.
	ErrCodeQuotaAvailable ValidationCode = "QUOTA_AVAILABLE"

	// ErrCodeUnappliedPayment indicates a paid edit was requested while an
	// approved one is still unused.
	ErrCodeUnappliedPayment ValidationCode = "UNAPPLIED_PAYMENT"

	// ErrCodeSpecialLinkOwned indicates a special link was requested for an
	// order that already has one.
	ErrCodeSpecialLinkOwned ValidationCode = "SPECIAL_LINK_OWNED"

	// ErrCodeNotApproved indicates the order has not been approved.
	ErrCodeNotApproved ValidationCode = "NOT_APPROVED"

	// ErrCodeNoRequest indicates there is no pending request to resolve.
	ErrCodeNoRequest ValidationCode = "NO_REQUEST"

	// ErrCodeUnknownTier indicates the tier is not in the table.
	ErrCodeUnknownTier ValidationCode = "UNKNOWN_TIER"

	// ErrCodeUnknownPackage indicates no extension package has the
	// requested day count.
	ErrCodeUnknownPackage ValidationCode = "UNKNOWN_PACKAGE"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.OrderID != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (order=%s, field=%s)", e.Code, e.Message, e.OrderID, e.Field)
	case e.OrderID != "":
		return fmt.Sprintf("%s: %s (order=%s)", e.Code, e.Message, e.OrderID)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCode reports whether err wraps a *ValidationError with code.
func IsCode(err error, code ValidationCode) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

func invalid(code ValidationCode, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}
