package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to API callers.
const (
	CodeValidation     = "VALIDATION_FAILED"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeAlreadyDecided = "ALREADY_DECIDED"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
)

// Retry hints tell the caller what to do next.
const (
	RetryCorrectInput   = "correct_input"
	RetryReauthenticate = "reauthenticate"
	RetryDoNot          = "do_not_retry"
	RetryReload         = "reload_and_retry"
	RetryLater          = "retry"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Retry      string
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Retry: retryFor(code), Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewAlreadyDecided reports a transition attempted on a terminal ticket.
func NewAlreadyDecided(ticketID, status string) error {
	return NewDomainError(CodeAlreadyDecided, "ticket already decided", http.StatusConflict, map[string]any{
		"ticket_id": ticketID,
		"status":    status,
	})
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Retry:      RetryLater,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return NewDomainError(CodeNotFound, "resource not found", http.StatusNotFound, map[string]any{})
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts err into a DomainError while keeping the error interface.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

func retryFor(code string) string {
	switch code {
	case CodeValidation:
		return RetryCorrectInput
	case CodeUnauthorized:
		return RetryReauthenticate
	case CodeConflict:
		return RetryReload
	case CodeInternal:
		return RetryLater
	default:
		return RetryDoNot
	}
}
