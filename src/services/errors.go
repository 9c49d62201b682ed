package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services.
var (
	// ErrSyncInProgress means another sync holds this institution's lock.
	// Callers treat it as "already syncing", not a failure.
	ErrSyncInProgress = errors.New("sync already running for this institution")

	ErrInstitutionNotFound  = errors.New("institution not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrRuleNotFound         = errors.New("rule not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// ValidationError rejects a user-initiated operation before any writes.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
