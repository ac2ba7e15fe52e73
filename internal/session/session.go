// Package session resolves the caller of an HTTP request into an auth.Identity.
//
// A Resolver answers "who is this?" and nothing else: a missing, expired or
// tampered credential yields (nil, nil). Errors are reserved for provider
// failures (database, cache, identity service) and always wrap
// ErrSessionResolution so the access layer can fail closed on them.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"hallynk/internal/auth"
)

var (
	ErrSessionResolution = errors.New("session resolution failed")

	// ErrNoAccount is returned by Accounts when no such user exists.
	ErrNoAccount = errors.New("account not found")
)

type Resolver interface {
	Resolve(r *http.Request) (*auth.Identity, error)
}

type ResolverFunc func(r *http.Request) (*auth.Identity, error)

func (f ResolverFunc) Resolve(r *http.Request) (*auth.Identity, error) { return f(r) }

// Account is the slice of a user record the resolvers need.
type Account struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Disabled       bool   `json:"disabled"`
	SessionVersion int64  `json:"session_version"`
}

type Accounts interface {
	AccountByID(ctx context.Context, id int64) (Account, error)
	AccountByEmail(ctx context.Context, email string) (Account, error)
}

// IdentityFromAccount is the only place a stored role string becomes an
// auth.Role. Disabled accounts have no identity.
func IdentityFromAccount(a Account, src auth.Source) *auth.Identity {
	if a.ID <= 0 || a.Disabled {
		return nil
	}
	return &auth.Identity{
		ID:     a.ID,
		Role:   auth.NormalizeRole(a.Role),
		Email:  auth.NormalizeEmail(a.Email),
		Source: src,
	}
}

func resolutionError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSessionResolution, op, err)
}

// Chain tries resolvers in order and returns the first identity linked to a
// local account. An unlinked identity (ID 0) is kept only when no later
// resolver finds a linked one. Provider errors are remembered and only
// surface when nobody resolved.
type Chain []Resolver

func (c Chain) Resolve(r *http.Request) (*auth.Identity, error) {
	var (
		errs     []error
		unlinked *auth.Identity
	)
	for _, res := range c {
		if res == nil {
			continue
		}
		id, err := res.Resolve(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id == nil {
			continue
		}
		if id.ID > 0 {
			return id, nil
		}
		if unlinked == nil {
			unlinked = id
		}
	}
	if unlinked != nil {
		return unlinked, nil
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
