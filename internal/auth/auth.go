// Package auth defines the request identity (who is calling, in which role) and its context plumbing.
package auth

import (
	"context"
	"strings"
)

type Source string

const (
	SourceSession Source = "session"
	SourceBearer  Source = "bearer"
)

// Identity is resolved once per request and never mutated afterwards.
type Identity struct {
	ID     int64
	Role   Role
	Email  string
	Source Source
}

func (i *Identity) Home() string {
	if i == nil {
		return HomeStudent
	}
	return i.Role.Home()
}

type ctxKey int

const identityKey ctxKey = 1

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
