// Package errors provides structured error handling for entropool.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess     = 0 // Successful execution
	ExitGeneral     = 1 // General/unknown error
	ExitInput       = 2 // Invalid input
	ExitNotFound    = 4 // Resource not found
	ExitBusy        = 5 // Pool exhausted or rate limited
	ExitUnavailable = 6 // Engine shut down
)

// PoolError is the structured error type for entropool.
type PoolError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *PoolError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *PoolError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for PoolError.
func (e *PoolError) Is(target error) bool {
	var t *PoolError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &PoolError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &PoolError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &PoolError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// Pool errors.
	ErrPoolExhausted = &PoolError{
		Code:     "POOL_EXHAUSTED",
		Message:  "all pool buffers are busy",
		ExitCode: ExitBusy,
	}

	ErrInvalidIndex = &PoolError{
		Code:     "INVALID_INDEX",
		Message:  "buffer index is out of range or not held",
		ExitCode: ExitGeneral,
	}

	ErrShutdown = &PoolError{
		Code:     "ENGINE_SHUTDOWN",
		Message:  "engine has been shut down",
		ExitCode: ExitUnavailable,
	}

	ErrSeedTooShort = &PoolError{
		Code:     "SEED_TOO_SHORT",
		Message:  "seed material is too short",
		ExitCode: ExitInput,
	}

	ErrInvalidPolicy = &PoolError{
		Code:     "INVALID_POLICY",
		Message:  "unknown output policy",
		ExitCode: ExitInput,
	}

	ErrInvalidRounds = &PoolError{
		Code:     "INVALID_ROUNDS",
		Message:  "cipher rounds must be 8, 12 or 20",
		ExitCode: ExitInput,
	}

	// Config-specific errors.
	ErrConfigNotFound = &PoolError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &PoolError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &PoolError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}

	ErrInvalidFormat = &PoolError{
		Code:     "INVALID_FORMAT",
		Message:  "invalid format",
		ExitCode: ExitInput,
	}

	// Transport errors.
	ErrRequestTooLarge = &PoolError{
		Code:     "REQUEST_TOO_LARGE",
		Message:  "requested byte count exceeds the configured maximum",
		ExitCode: ExitInput,
	}

	ErrRateLimited = &PoolError{
		Code:     "RATE_LIMITED",
		Message:  "too many requests",
		ExitCode: ExitBusy,
	}
)

// New creates a new PoolError with the given code and message.
func New(code, message string) *PoolError {
	return &PoolError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var pe *PoolError
	if errors.As(err, &pe) {
		return &PoolError{
			Code:       pe.Code,
			Message:    fmt.Sprintf("%s: %s", msg, pe.Message),
			Details:    pe.Details,
			Suggestion: pe.Suggestion,
			Cause:      err,
			ExitCode:   pe.ExitCode,
		}
	}

	return &PoolError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var pe *PoolError
	if errors.As(err, &pe) {
		return &PoolError{
			Code:       pe.Code,
			Message:    pe.Message,
			Details:    details,
			Suggestion: pe.Suggestion,
			Cause:      pe.Cause,
			ExitCode:   pe.ExitCode,
		}
	}

	return &PoolError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var pe *PoolError
	if errors.As(err, &pe) {
		return &PoolError{
			Code:       pe.Code,
			Message:    pe.Message,
			Details:    pe.Details,
			Suggestion: suggestion,
			Cause:      pe.Cause,
			ExitCode:   pe.ExitCode,
		}
	}

	return &PoolError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var pe *PoolError
	if errors.As(err, &pe) {
		return pe.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var pe *PoolError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
