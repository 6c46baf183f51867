/*
Package errs provides the application's error type and its business error codes.

This file defines CustomError, which carries a business code, a user-facing
message and the HTTP status used when it is written as a response.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"meetsignal/internal/pkg/logx"
)

// CustomError is the error type returned by request handlers.
type CustomError struct {
	// Code is the business error code (see the constants in error_codes.go).
	Code int

	// Message is the user-facing description.
	Message string

	// Status is the HTTP status used when the error is written as a response.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError from a registered code. details are used as
// printf arguments when the message template has verbs; for ErrUnknown the
// first detail may be the underlying error, which is logged and not exposed.
// Unregistered codes collapse to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	template, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("error code %d is not registered", code),
			"Unknown error code requested",
			"requested_code", code,
		)
		template = errorMap[ErrUnknown]
	}

	customErr := template
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	switch {
	case len(details) == 0:
	case customErr.Code == ErrUnknown:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Handling ErrUnknown with underlying error")
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Details provided for an error without format verbs. Details ignored.", "code", code)
	}

	return &customErr
}
