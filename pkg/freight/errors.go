package freight

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindUnavailable      ErrorKind = "unavailable"
	KindUnexpectedSchema ErrorKind = "unexpected_schema"
	KindTimeout          ErrorKind = "timeout"
	KindValidation       ErrorKind = "validation"
)

// ProviderError represents an error from a quote provider.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ProviderError.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider string, kind ErrorKind, message string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  message,
	}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	return e
}

// Sentinel errors for common quote scenarios.
var (
	// ErrProviderUnavailable indicates the provider is temporarily unreachable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoQuotes indicates every consulted provider came back empty.
	ErrNoQuotes = errors.New("no quotes available")

	// ErrMalformedPostalCode indicates a provider rejected the destination CEP.
	ErrMalformedPostalCode = errors.New("malformed postal code")
)

// IsRetryable returns true if the error is worth one more attempt
// against the same provider.
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Kind == KindTimeout || provErr.Kind == KindUnavailable
	}
	return errors.Is(err, ErrProviderUnavailable)
}
