package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Callers compare against these, never against
// hardcoded strings.
const (
	// Caller errors
	ErrCodeInvalidArgument        ErrorCode = "validation_invalid_argument"
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"

	// Channel misconfiguration. Not transient; never retried.
	ErrCodeCommunications ErrorCode = "communications_misconfigured"

	// Dispatch
	ErrCodeProviderNotFound   ErrorCode = "dispatch_provider_not_found"
	ErrCodeProviderNotAllowed ErrorCode = "dispatch_provider_not_allowed"

	// Upstream
	ErrCodeUpstreamProvider    ErrorCode = "upstream_provider_error"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamRejected    ErrorCode = "upstream_rejected"

	// Reports
	ErrCodeSignatureInvalid ErrorCode = "auth_signature_invalid"

	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// Retryable reports whether the dispatch layer may try the same
// communication again later. Only upstream availability problems qualify.
func (c ErrorCode) Retryable() bool {
	return c == ErrCodeUpstreamUnavailable || c == ErrCodeUpstreamRateLimited
}

// IsCallerError reports whether the code describes a bad request rather
// than a failure of this service or a provider.
func (c ErrorCode) IsCallerError() bool {
	s := string(c)
	return strings.HasPrefix(s, "validation_") || strings.HasPrefix(s, "auth_")
}

// HTTPStatus maps the code onto the status an HTTP surface should return.
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == ErrCodeSignatureInvalid:
		return http.StatusUnauthorized
	case c.IsCallerError():
		return http.StatusBadRequest
	case c == ErrCodeUpstreamRateLimited:
		return http.StatusTooManyRequests
	case c == ErrCodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case strings.HasPrefix(string(c), "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard error type used throughout the module. It carries
// a code for programmatic handling and supports error chains.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or the empty
// code if there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err's chain contains an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
