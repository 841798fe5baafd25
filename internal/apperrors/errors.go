// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package apperrors defines the typed error model shared by the attendance
// state machine, the location verifier, and the HTTP layer.
//
// Every error carries a type (the client-facing category), a stable
// machine-readable code, and a retryable flag. The HTTP layer serializes
// these fields directly into the error envelope, so codes are part of the
// API contract and must not change meaning between releases.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Type is the client-facing error category.
type Type string

const (
	// TypeValidation covers malformed input, unresolvable rotation context,
	// and strict-mode accuracy failures. Client fault, never retryable.
	TypeValidation Type = "ValidationError"

	// TypeBusiness covers state conflicts: double clock-in, clock-out with
	// no open session, geofence rejection. Never retryable as-is.
	TypeBusiness Type = "BusinessLogicError"

	// TypeAuthorization covers missing or insufficient credentials.
	TypeAuthorization Type = "AuthorizationError"

	// TypeSystem covers internal failures callers may retry.
	TypeSystem Type = "SystemError"

	// TypeDatabase covers storage failures callers may retry.
	TypeDatabase Type = "DatabaseError"
)

// FieldError pinpoints a validation failure to a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed application error. The JSON shape matches the API
// error envelope exactly, so handlers can serialize it without translation.
type Error struct {
	Type      Type         `json:"type"`
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Retryable bool         `json:"retryable"`
	Timestamp time.Time    `json:"timestamp"`
	Fields    []FieldError `json:"fields,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error without changing the client-facing
// fields. Returns the receiver for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// Validation creates a non-retryable validation error. Optional field errors
// identify the offending inputs.
func Validation(code, message string, fields ...FieldError) *Error {
	return &Error{
		Type:      TypeValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	}
}

// Business creates a non-retryable business rule violation.
func Business(code, message string) *Error {
	return &Error{
		Type:      TypeBusiness,
		Code:      code,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Authorization creates an authorization failure.
func Authorization(code, message string) *Error {
	return &Error{
		Type:      TypeAuthorization,
		Code:      code,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// System creates a retryable internal error wrapping cause.
func System(code, message string, cause error) *Error {
	return &Error{
		Type:      TypeSystem,
		Code:      code,
		Message:   message,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// Database creates a retryable storage error wrapping cause.
func Database(code, message string, cause error) *Error {
	return &Error{
		Type:      TypeDatabase,
		Code:      code,
		Message:   message,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// From returns err as an *Error. Typed errors pass through unchanged;
// anything else is wrapped as a retryable SYSTEM_ERROR. The original error
// text is preserved in Message for logging; the HTTP layer replaces system
// and database messages with a generic one before responding.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	return &Error{
		Type:      TypeSystem,
		Code:      CodeSystemError,
		Message:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// HTTPStatus maps the error to an HTTP status code:
//   - validation → 400
//   - authorization → 401 for missing/invalid credentials, 403 otherwise
//   - business → 409
//   - system/database → 503 when retryable, 500 otherwise
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeAuthorization:
		if e.Code == CodeUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case TypeBusiness:
		return http.StatusConflict
	case TypeSystem, TypeDatabase:
		if e.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsType reports whether err is an *Error of the given type.
func IsType(err error, t Type) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}
