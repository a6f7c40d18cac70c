// Package auth implements the login ability: vendor credential lookup
// against a relational store, with a static-config fallback when the store
// is unreachable.
package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/merchkit/abilityd/internal/ability"
)

// CredentialStore is the slice of Store the ability depends on.
type CredentialStore interface {
	Lookup(ctx context.Context, username, password string) (*Merchant, error)
}

// StaticUser is a config-declared credential used when the store fails.
type StaticUser struct {
	Password   string
	MerchantID string
}

// Options are the injected login settings.
type Options struct {
	FallbackEnabled bool
	Users           map[string]StaticUser
}

// Result is the login outcome. Bad credentials are a non-success result,
// not an error.
type Result struct {
	Success  bool      `json:"success"`
	Merchant *Merchant `json:"merchant,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Ability implements ability.Ability for vendor login.
type Ability struct {
	opts   Options
	store  CredentialStore
	logger *zap.Logger
}

var _ ability.Ability = (*Ability)(nil)

// New creates the login ability. store may be nil when only static users
// are configured.
func New(opts Options, store CredentialStore, logger *zap.Logger) *Ability {
	return &Ability{opts: opts, store: store, logger: logger}
}

// Name returns the ability name.
func (a *Ability) Name() string { return "login" }

// Version returns the ability version.
func (a *Ability) Version() string { return "1.0.0" }

// Validate requires string username and password.
func (a *Ability) Validate(_ context.Context, c ability.Context) (bool, error) {
	if _, ok := c.String("username"); !ok {
		return false, nil
	}
	if _, ok := c.String("password"); !ok {
		return false, nil
	}
	return true, nil
}

// Execute authenticates the vendor.
func (a *Ability) Execute(ctx context.Context, c ability.Context) (any, error) {
	username, _ := c.String("username")
	password, _ := c.String("password")

	if a.store != nil {
		m, err := a.store.Lookup(ctx, username, password)
		switch {
		case err == nil:
			return Result{Success: true, Merchant: m}, nil
		case errors.Is(err, ErrUnknownUser):
			return Result{Success: false, Error: "invalid username or password"}, nil
		default:
			a.logger.Warn("vendor store lookup failed", zap.Error(err))
			if !a.opts.FallbackEnabled {
				return nil, err
			}
			// fall through to static users
		}
	}

	if a.opts.FallbackEnabled {
		if u, ok := a.opts.Users[username]; ok && u.Password == password {
			a.logger.Info("authenticated via static fallback", zap.String("username", username))
			return Result{Success: true, Merchant: &Merchant{MerchantID: u.MerchantID}}, nil
		}
		return Result{Success: false, Error: "invalid username or password"}, nil
	}

	return Result{Success: false, Error: "invalid username or password"}, nil
}
