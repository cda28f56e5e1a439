package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the ledger surfaces to callers
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindNotFound          ErrorKind = "not_found"
	KindAlreadyProcessed  ErrorKind = "already_processed"
	KindNoTicketsSold     ErrorKind = "no_tickets_sold"
	KindStorageFailure    ErrorKind = "storage_failure"
)

// Error carries a kind, a human-readable message and an optional cause
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any other *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrAlreadyProcessed  = &Error{Kind: KindAlreadyProcessed, Message: "already processed"}
	ErrNoTicketsSold     = &Error{Kind: KindNoTicketsSold, Message: "no tickets sold"}
	ErrStorageFailure    = &Error{Kind: KindStorageFailure, Message: "storage failure"}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidInputError(format string, args ...any) error {
	return newError(KindInvalidInput, format, args...)
}

func NewInsufficientFundsError(format string, args ...any) error {
	return newError(KindInsufficientFunds, format, args...)
}

func NewNotFoundError(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func NewAlreadyProcessedError(format string, args ...any) error {
	return newError(KindAlreadyProcessed, format, args...)
}

func NewNoTicketsSoldError(format string, args ...any) error {
	return newError(KindNoTicketsSold, format, args...)
}

// NewStorageFailureError wraps a driver or transport error
func NewStorageFailureError(message string, err error) error {
	return &Error{Kind: KindStorageFailure, Message: message, Err: err}
}

// KindOf returns the kind of the first ledger error in err's chain, or "" when there is none
func KindOf(err error) ErrorKind {
	var ledgerErr *Error
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Kind
	}
	return ""
}
