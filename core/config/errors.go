package config

import "errors"

var (
	// ErrNotAllowed is returned when a resolved value is outside the field's
	// allowed set.
	ErrNotAllowed = errors.New("config: value not allowed")
	// ErrUnresolved is returned when neither the environment, the file nor a
	// default provide a value.
	ErrUnresolved = errors.New("config: value not configured")
	ErrInvalid    = errors.New("config: invalid value")
)
