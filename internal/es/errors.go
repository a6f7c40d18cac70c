package es

import (
	"errors"
	"fmt"
)

// ConnError marks a connectivity-class failure: the engine could not be
// reached or answered through a failing gateway. Retrying with a fresh
// connection may help.
type ConnError struct {
	Err error
}

func (e *ConnError) Error() string { return "engine connection: " + e.Err.Error() }
func (e *ConnError) Unwrap() error { return e.Err }

// StatusError is a non-2xx engine response that is not a connectivity
// failure (bad query, missing index, auth).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine returned status %d: %s", e.StatusCode, e.Body)
}

// IsConnError reports whether err is connectivity-class.
func IsConnError(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce)
}
