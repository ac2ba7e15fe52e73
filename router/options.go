package router

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"hallynk/internal/config"
	"hallynk/internal/limits"
	"hallynk/internal/session"
	"hallynk/internal/store"
)

// IdentityInvalidator drops cached identities after a role, status or
// password change. session.CachedAccounts implements it.
type IdentityInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

type Options struct {
	Store    *store.Store
	Resolver session.Resolver
	Logger   *slog.Logger

	// Optional.
	Identities  IdentityInvalidator
	WriteLimits *limits.UserLimits

	AllowOpenRegistration bool
	Marketplace           config.MarketplaceConfig

	APIMaxBodyBytes int64
	APITimeout      time.Duration

	FrontendDistDir   string
	FrontendIndexPage []byte // optional; a placeholder page is served when empty.
	FrontendFS        fs.FS  // optional; takes precedence over FrontendDistDir.

	// system
	Healthz   http.HandlerFunc
	DebugVars http.Handler // optional; admin only.
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
