package types

import "fmt"

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeForbidden  ErrorType = "forbidden"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
)

// AppError represents a structured error in the system
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error carrying identifying details
// of the conflicting resource so clients can deep-link to it
func NewConflictError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeRateLimit,
		Code:    ErrCodeRateLimitExceeded,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// StatusCode maps the error type to its HTTP status. Conflicts report as
// 400 with the conflicting resource's details attached.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeConflict:
		return 400
	case ErrorTypeForbidden:
		return 403
	case ErrorTypeNotFound:
		return 404
	case ErrorTypeRateLimit:
		return 429
	default:
		return 500
	}
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeTenantNotFound     = "TENANT_NOT_FOUND"
	ErrCodeTenantInactive     = "TENANT_INACTIVE"
	ErrCodeTenantSuspended    = "TENANT_SUSPENDED"
	ErrCodeTenantCancelled    = "TENANT_CANCELLED"
	ErrCodeGrantNotFound      = "GRANT_NOT_FOUND"
	ErrCodeDuplicateGrant     = "DUPLICATE_GRANT"
	ErrCodeSameOrganization   = "SAME_ORGANIZATION"
	ErrCodeCrossOrgAccess     = "CROSS_ORG_ACCESS_REQUIRED"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)
