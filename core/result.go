package core

import "fmt"

// ErrorKind classifies failures from external providers so callers can
// decide policy (short-circuit, degrade, fall back) without string matching.
type ErrorKind string

const (
	ErrKindInvalidAudio       ErrorKind = "invalid_audio"
	ErrKindAuth               ErrorKind = "auth"
	ErrKindTimeout            ErrorKind = "timeout"
	ErrKindUpstream           ErrorKind = "upstream"
	ErrKindAllProvidersFailed ErrorKind = "all_providers_failed"
)

// ProviderError is the typed failure returned by every external-call
// component. Provider clients never panic or return untyped errors;
// the coordinator inspects Kind explicitly.
type ProviderError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewProviderError builds a ProviderError with a formatted detail message.
func NewProviderError(kind ErrorKind, format string, args ...interface{}) *ProviderError {
	return &ProviderError{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	}
}

// KindOf extracts the ErrorKind from an error, defaulting to upstream for
// anything that is not a ProviderError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if pe, ok := err.(*ProviderError); ok {
		return pe.Kind
	}
	return ErrKindUpstream
}
