// Package apperr holds the error kinds surfaced by the analysis pipeline.
//
// Every failure that reaches a caller is one of the types below, so the CLI
// and the HTTP layer can render a specific message without inspecting error
// strings.
package apperr

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded is matched by every *QuotaExceededError.
var ErrQuotaExceeded = errors.New("session analysis quota exceeded")

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError for the given field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ExtractionReason tells why a resume could not be turned into a payload.
type ExtractionReason string

const (
	ReasonNoPages       ExtractionReason = "no_pages"
	ReasonTooLarge      ExtractionReason = "too_large"
	ReasonDecodeFailure ExtractionReason = "decode_failure"
)

// ExtractionError is returned by the document extractor.
type ExtractionError struct {
	Reason ExtractionReason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract resume: %s", e.Reason)
	}
	return fmt.Sprintf("extract resume: %s: %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NewExtraction wraps err with the given reason.
func NewExtraction(reason ExtractionReason, err error) *ExtractionError {
	return &ExtractionError{Reason: reason, Err: err}
}

// ConfigurationError is a deployment or programming mistake: unknown
// analysis type, missing credential, invalid settings.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration: %s: %v", e.Message, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfiguration builds a ConfigurationError.
func NewConfiguration(message string, err error) *ConfigurationError {
	return &ConfigurationError{Message: message, Err: err}
}

// QuotaExceededError is returned once a session used all of its analyses.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: limit of %d analyses reached", ErrQuotaExceeded, e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// RemoteKind classifies a failure of the remote model.
type RemoteKind string

const (
	RemoteQuota         RemoteKind = "quota"
	RemoteRateLimit     RemoteKind = "rate_limit"
	RemoteSafetyBlocked RemoteKind = "safety_blocked"
	RemoteUnknown       RemoteKind = "unknown"
)

// RemoteError is a classified failure of the remote model call.
type RemoteError struct {
	Kind  RemoteKind
	Model string
	Err   error
}

func (e *RemoteError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("remote model (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("remote model %s (%s): %v", e.Model, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RemoteKindOf returns the kind of a wrapped RemoteError, if any.
func RemoteKindOf(err error) (RemoteKind, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Kind, true
	}
	return "", false
}
