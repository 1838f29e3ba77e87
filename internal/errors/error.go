// Package errors provides structured, coded errors for reflow's CLI and
// live layer. Every error carries a stable code (e.g. "E101") and a
// category, and can attach a suggestion shown to CLI users.
package errors

import (
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryProtocol Category = "protocol"
	CategoryRuntime  Category = "runtime"
	CategoryCLI      Category = "cli"
)

// Error is a structured error with a stable code, a category, and an
// optional fix suggestion.
type Error struct {
	// Code is a unique error identifier (e.g. "E101").
	Code string

	// Category is the error type (config, protocol, runtime, cli).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, shown in formatted CLI output.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// New creates a coded error.
func New(code string, category Category, message string) *Error {
	return &Error{Code: code, Category: category, Message: message}
}

// Wrap creates a coded error around an underlying one.
func Wrap(code string, category Category, message string, err error) *Error {
	return &Error{Code: code, Category: category, Message: message, Wrapped: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Wrapped)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a longer explanation to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// Format renders the error for terminal output: code and message first,
// then cause, detail, and suggestion on their own lines when present.
func (e *Error) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", strings.ToUpper(string(e.Category)), e.Code, e.Message)
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "\n  cause: %s", e.Wrapped)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, "\n  %s", e.Detail)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  hint: %s", e.Suggestion)
	}
	return b.String()
}
