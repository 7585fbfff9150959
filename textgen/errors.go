package textgen

import (
	"errors"
	"fmt"
)

// Precondition errors. They are returned before any provider call.
var (
	ErrEmptyPrompt  = errors.New("textgen: prompt must not be empty")
	ErrMissingImage = errors.New("textgen: image payload is required")
)

// ErrEmptyResponse is wrapped by ProviderError when the provider answered
// without any text.
var ErrEmptyResponse = errors.New("textgen: provider returned no text")

// ProviderError reports a failed exchange with the text provider: transport,
// authentication, quota, safety blocks or an empty answer.
type ProviderError struct {
	Op       Operation
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("textgen: %s via %s: %v", e.Op, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ParseError reports a reply that is not valid JSON of the declared shape.
// It is a contract violation and never partially recovered.
type ParseError struct {
	Op Operation
	// Snippet is the beginning of the offending reply, for logs.
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("textgen: %s: malformed reply: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsProviderError reports whether err is or wraps a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
