package plotrc

import (
	"errors"
	"fmt"

	"github.com/dshills/plotrc/loader"
)

// Errors returned by store operations.
var (
	// ErrUnknownKey indicates the setting key is not registered.
	ErrUnknownKey = errors.New("unknown setting key")

	// ErrUnknownCategory indicates the category has no settings.
	ErrUnknownCategory = errors.New("unknown setting category")

	// ErrInvalidValue indicates a validator rejected a value.
	ErrInvalidValue = errors.New("invalid setting value")
)

// FormatError is a malformed line in a settings file. Load returns it
// with the offending line and reason; no settings change in that case.
type FormatError = loader.FormatError

// InvalidValueError describes a rejected value, including the form the
// setting accepts.
type InvalidValueError struct {
	// Key is the setting key.
	Key string
	// Value is the rejected value.
	Value any
	// Reason describes why the value was rejected.
	Reason string
	// Accepts describes the accepted type and range.
	Accepts string
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s (accepts %s)", e.Key, e.Reason, e.Accepts)
}

// Is implements error matching against ErrInvalidValue.
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// TypeError is returned by typed accessors when the setting holds a
// different type.
type TypeError struct {
	// Key is the setting key.
	Key string
	// Expected is the requested type name.
	Expected string
	// Actual is the stored type name.
	Actual string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type error for %s: expected %s, got %s", e.Key, e.Expected, e.Actual)
}
