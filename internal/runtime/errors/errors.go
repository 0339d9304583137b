package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrServiceRequired      = sterrors.New("wormhole: event service is required")
	ErrConfigRequired       = sterrors.New("wormhole: configuration is required")
	ErrLoggerRequired       = sterrors.New("wormhole: logger is required")
	ErrPublisherRequired    = sterrors.New("wormhole: publisher is required")
	ErrTopicRequired        = sterrors.New("wormhole: topic is required")
	ErrEventPayloadRequired = sterrors.New("wormhole: event payload is required")
	ErrCorrelatorRequired   = sterrors.New("wormhole: correlator is required")
	ErrUnknownEncoding      = sterrors.New("wormhole: unknown record encoding")
	ErrInvalidEvent         = sterrors.New("wormhole: invalid hook event")
)

// ConfigValidationError wraps the aggregated problems reported by
// Config.Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("wormhole: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// UnprocessableEventError marks a message that can never be handled, no
// matter how often it is retried. The poison middleware diverts it.
type UnprocessableEventError struct {
	MessageUUID string
	Err         error
}

func (e *UnprocessableEventError) Error() string {
	return fmt.Sprintf("wormhole: unprocessable event %s: %v", e.MessageUUID, e.Err)
}

func (e *UnprocessableEventError) Unwrap() error { return e.Err }

// IsUnprocessable reports whether err carries an UnprocessableEventError.
func IsUnprocessable(err error) bool {
	var target *UnprocessableEventError
	return sterrors.As(err, &target)
}
