package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Rejection kinds. Every failure that crosses the access pipeline or the
// invariant guard matches exactly one of these with errors.Is.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("access forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrTransientStore   = errors.New("store temporarily unavailable")
)

// Specific errors. Each one also matches its rejection kind.
var (
	ErrUserNotFound       = kindError(ErrNotFound, "user not found")
	ErrAccountInactive    = kindError(ErrUnauthenticated, "account inactive")
	ErrInvalidCredentials = kindError(ErrUnauthenticated, "invalid credentials")
	ErrUserExists         = kindError(ErrConflict, "user already exists")
	ErrEventNotFound      = kindError(ErrNotFound, "event not found")
	ErrEventInactive      = kindError(ErrConflict, "event is not open for booking")
	ErrBookingNotFound    = kindError(ErrNotFound, "booking not found")
	ErrBookingCancelled   = kindError(ErrConflict, "booking already cancelled")
	ErrKeyInFlight        = kindError(ErrConflict, "a request with this idempotency key is still in progress")
	ErrKeyReused          = kindError(ErrConflict, "idempotency key already used for another event")
)

type kinded struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) error {
	return &kinded{kind: kind, msg: msg}
}

func (e *kinded) Error() string { return e.msg }
func (e *kinded) Unwrap() error { return e.kind }

// Violation names a single offending field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects the violations found on an entity.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Transient marks err as a retryable store failure.
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientStore, err)
}

// violations accumulates field errors; nil when nothing was added.
type violations []Violation

func (vs *violations) add(field, msg string) {
	*vs = append(*vs, Violation{Field: field, Message: msg})
}

func (vs violations) err() error {
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}
