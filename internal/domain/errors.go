package domain

import "errors"

var (
	// ErrAbilityNotFound signals a dispatch against an unregistered ability name.
	ErrAbilityNotFound = errors.New("ability not found")
	// ErrInvalidContext signals that ability input validation rejected the context.
	ErrInvalidContext = errors.New("invalid context")
	// ErrEngineConnection signals that the search engine could not be reached.
	ErrEngineConnection = errors.New("search engine connection failed")
	// ErrSearchUnavailable signals that a search query failed after exhausting retries.
	ErrSearchUnavailable = errors.New("search unavailable")
)
