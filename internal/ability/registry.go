package ability

import (
	"context"
	"fmt"

	"github.com/merchkit/abilityd/internal/domain"
)

// Registry routes invocations to abilities by name. It is a stateless
// router: no retries, caching, or locking live here. Register is called
// during startup wiring only; once registration is complete, concurrent
// Dispatch calls are safe.
type Registry struct {
	abilities map[string]Ability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{abilities: make(map[string]Ability)}
}

// Register stores the ability under its name. Registering the same name
// twice silently overwrites the earlier entry.
func (r *Registry) Register(a Ability) {
	r.abilities[a.Name()] = a
}

// Get returns the ability registered under name.
func (r *Registry) Get(name string) (Ability, error) {
	a, ok := r.abilities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrAbilityNotFound, name)
	}
	return a, nil
}

// Dispatch looks up the ability, validates the context, and executes.
// Validation errors from the ability propagate unchanged; a plain false
// becomes ErrInvalidContext naming the ability.
func (r *Registry) Dispatch(ctx context.Context, name string, c Context) (any, error) {
	a, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	ok, err := a.Validate(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w for ability %q", domain.ErrInvalidContext, name)
	}

	return a.Execute(ctx, c)
}

// List returns a snapshot of registered ability names and versions.
func (r *Registry) List() map[string]string {
	out := make(map[string]string, len(r.abilities))
	for name, a := range r.abilities {
		out[name] = a.Version()
	}
	return out
}
