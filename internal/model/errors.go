package model

import (
	"errors"
	"fmt"
)

// ErrConflict means the requested slot overlaps an existing non-cancelled
// appointment. The caller should re-query availability and pick a fresh slot.
var ErrConflict = errors.New("time slot already booked")

// ValidationError is malformed booking input: empty service list, unknown
// ids, misaligned or out-of-window start times.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConfigurationError is invalid working-hours data. It surfaces on the
// business-configuration surface, never to booking callers.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}
