// Package ability defines the contract every pluggable ability implements
// and the name-keyed registry that dispatches invocations to them.
package ability

import "context"

// Context is the parameter bag supplied per invocation. The registry never
// mutates it; ownership passes to the ability for the duration of one call.
type Context map[string]any

// String returns the value under key if it is present and a string.
func (c Context) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the value under key as an int. JSON decoding delivers numbers
// as float64, so both shapes are accepted.
func (c Context) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Ability is a named, versioned unit of executable behavior.
//
// Validate checks presence and basic type of every required context key.
// It may return (false, nil) or fail with a descriptive error; the registry
// treats both as a rejected invocation, but a returned error propagates
// unchanged to the caller.
//
// Implementations are constructed once at process start and live for the
// process lifetime. They hold no state across invocations except lazily
// cached external connections.
type Ability interface {
	Name() string
	Version() string
	Validate(ctx context.Context, c Context) (bool, error)
	Execute(ctx context.Context, c Context) (any, error)
}
