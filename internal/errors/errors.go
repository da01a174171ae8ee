package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a specific error type for better error handling
type ErrorCode string

const (
	// Configuration errors - unrecoverable per-process conditions
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeConfigMissing ErrorCode = "CONFIG_MISSING_REQUIRED"

	// Persistent store errors
	ErrCodeStoreQuota       ErrorCode = "STORE_QUOTA_EXCEEDED"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeStoreFailed      ErrorCode = "STORE_OPERATION_FAILED"

	// Cache errors
	ErrCodeCacheCorrupt ErrorCode = "CACHE_ENTRY_CORRUPT"

	// Routing errors
	ErrCodeNoBackend      ErrorCode = "NO_BACKEND_AVAILABLE"
	ErrCodeBackendTimeout ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeBreakerOpen    ErrorCode = "CIRCUIT_BREAKER_OPEN"

	// Request processing errors
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeAuthFailed        ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ProxyError represents a structured error with context
type ProxyError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Cause     error                  `json:"-"` // Original error
}

// Error implements the error interface
func (e *ProxyError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error code
func (e *ProxyError) Is(target error) bool {
	if t, ok := target.(*ProxyError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithMetadata adds metadata to the error
func (e *ProxyError) WithMetadata(key string, value interface{}) *ProxyError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsDegraded returns true if the error marks a degraded dependency rather
// than a failure the request must surface.
func (e *ProxyError) IsDegraded() bool {
	switch e.Code {
	case ErrCodeStoreQuota, ErrCodeStoreUnavailable:
		return true
	default:
		return false
	}
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *ProxyError) HTTPStatusCode() int {
	switch e.Code {
	case ErrCodeInvalidRequest:
		return 400
	case ErrCodeAuthFailed:
		return 401
	case ErrCodeRateLimitExceeded:
		return 429
	case ErrCodeNoBackend, ErrCodeBreakerOpen:
		return 503
	case ErrCodeBackendTimeout:
		return 504
	default:
		return 500
	}
}

// NewError creates a new ProxyError
func NewError(code ErrorCode, component, message string) *ProxyError {
	return &ProxyError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WrapError wraps an existing error with ProxyError structure
func WrapError(err error, code ErrorCode, component, message string) *ProxyError {
	if err == nil {
		return nil
	}

	return &ProxyError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
		Details:   err.Error(),
	}
}

// Common error constructors for frequently used errors

// NewConfigError creates an error for a missing required configuration value
func NewConfigError(setting string) *ProxyError {
	return NewError(
		ErrCodeConfigMissing,
		"config",
		fmt.Sprintf("Required setting %q is not configured", setting),
	).WithMetadata("setting", setting)
}

// NewStoreQuotaError creates a degraded-dependency error for store quota limits
func NewStoreQuotaError(op string, cause error) *ProxyError {
	return WrapError(
		cause,
		ErrCodeStoreQuota,
		"store",
		fmt.Sprintf("Persistent store rejected %s due to quota limits", op),
	).WithMetadata("operation", op)
}

// NewCacheCorruptError creates an error for a malformed cached value
func NewCacheCorruptError(key string, cause error) *ProxyError {
	return WrapError(
		cause,
		ErrCodeCacheCorrupt,
		"cache",
		fmt.Sprintf("Cached value for %q has an unexpected shape", key),
	).WithMetadata("key", key)
}

// NewNoBackendError creates an error when no backend hosts the requested name
func NewNoBackendError(host string) *ProxyError {
	return NewError(
		ErrCodeNoBackend,
		"router",
		fmt.Sprintf("No backend hosts content for %s", host),
	).WithMetadata("host", host)
}

// IsProxyError checks if an error is a ProxyError
func IsProxyError(err error) bool {
	var pErr *ProxyError
	return errors.As(err, &pErr)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var pErr *ProxyError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return ErrCodeInternalError
}

// IsDegraded checks if an error marks a degraded dependency
func IsDegraded(err error) bool {
	var pErr *ProxyError
	if errors.As(err, &pErr) {
		return pErr.IsDegraded()
	}
	return false
}

// GetHTTPStatusCode gets the appropriate HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	var pErr *ProxyError
	if errors.As(err, &pErr) {
		return pErr.HTTPStatusCode()
	}
	return 500
}
