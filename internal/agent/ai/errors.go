package ai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrorKind groups upstream failures by what the caller can do about them.
type ErrorKind string

const (
	KindAuth           ErrorKind = "auth"
	KindRateLimit      ErrorKind = "rate_limit"
	KindOverloaded     ErrorKind = "overloaded"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindTransport      ErrorKind = "transport"
	KindOther          ErrorKind = "other"
)

// ProviderError represents an error from the upstream API
type ProviderError struct {
	Kind       ErrorKind `json:"kind"`
	StatusCode int       `json:"status_code,omitempty"`
	Type       string    `json:"type,omitempty"`
	Message    string    `json:"message"`
	cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 && e.cause == nil {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.cause
}

// IsAuthError reports whether err was caused by a rejected API key.
func IsAuthError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindAuth
}

func classifyErrorType(t string) ErrorKind {
	switch t {
	case "authentication_error", "permission_error":
		return KindAuth
	case "rate_limit_error":
		return KindRateLimit
	case "overloaded_error":
		return KindOverloaded
	case "invalid_request_error", "not_found_error", "request_too_large":
		return KindInvalidRequest
	default:
		return KindOther
	}
}

func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == 529:
		return KindOverloaded
	case code >= 400 && code < 500:
		return KindInvalidRequest
	default:
		return KindOther
	}
}

// wrapRequestError converts an SDK or network error into a ProviderError.
func wrapRequestError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Kind:       classifyStatus(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
			cause:      err,
		}
	}
	return &ProviderError{Kind: KindTransport, Message: "request failed: " + err.Error(), cause: err}
}
