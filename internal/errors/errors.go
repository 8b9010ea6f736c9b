// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNetwork         = errors.New("network error")
	ErrNoData          = errors.New("no data available")
	ErrRateLimited     = errors.New("rate limited")
	ErrTimeout         = errors.New("operation timed out")
	ErrInputValidation = errors.New("input validation failed")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrSourceDisabled  = errors.New("source not configured")
)

// NetworkError represents an unreachable upstream or a non-200 response.
type NetworkError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status code: %d", e.Source, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s request failed", e.Source)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrNetwork, and ErrRateLimited for HTTP 429.
func (e *NetworkError) Is(target error) bool {
	if target == ErrNetwork {
		return true
	}
	return target == ErrRateLimited && e.StatusCode == 429
}

// NewNetworkError creates a new NetworkError.
func NewNetworkError(source string, statusCode int, err error) *NetworkError {
	return &NetworkError{
		Source:     source,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NoDataError represents an empty result set from an upstream.
type NoDataError struct {
	Source string
	Symbol string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data returned from %s for %s", e.Source, e.Symbol)
}

func (e *NoDataError) Is(target error) bool {
	return target == ErrNoData
}

// NewNoDataError creates a new NoDataError.
func NewNoDataError(source, symbol string) *NoDataError {
	return &NoDataError{
		Source: source,
		Symbol: symbol,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
