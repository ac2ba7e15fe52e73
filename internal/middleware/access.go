package middleware

import (
	"log/slog"
	"net/http"

	"hallynk/internal/access"
	"hallynk/internal/auth"
	"hallynk/internal/obs"
	"hallynk/internal/session"
)

// Gate is the request interceptor in front of every page route. It resolves
// the caller at most once, asks the policy for a decision and either
// forwards the request or answers 302. It never writes session state.
type Gate struct {
	policy   access.Policy
	resolver session.Resolver
	logger   *slog.Logger
}

func NewGate(policy access.Policy, resolver session.Resolver, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{policy: policy, resolver: resolver, logger: logger}
}

// Check returns the request to forward, carrying the resolved identity, and
// true. When it returns false a redirect has already been written to w.
func (g *Gate) Check(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	path := access.NormalizePath(r.URL.Path)
	if !g.policy.Relevant(path) {
		return r, true
	}

	id := g.identity(r)
	d := g.policy.Decide(path, id)
	obs.RecordAccessDecision(d.Action.String())

	if d.Action == access.Redirect {
		g.logger.Debug("access redirect",
			"request_id", GetRequestID(r.Context()),
			"path", path,
			"target", d.Target,
			"reason", d.Reason,
			"role", roleOf(id),
		)
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, d.Target, http.StatusFound)
		return nil, false
	}
	if id != nil {
		r = r.WithContext(auth.WithIdentity(r.Context(), *id))
	}
	return r, true
}

func (g *Gate) identity(r *http.Request) *auth.Identity {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return &id
	}
	if g.resolver == nil {
		return nil
	}
	id, err := g.resolver.Resolve(r)
	if err != nil {
		obs.RecordSessionResolveError()
		g.logger.Warn("session resolution failed, treating request as anonymous",
			"request_id", GetRequestID(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		return nil
	}
	return id
}

func roleOf(id *auth.Identity) string {
	if id == nil {
		return ""
	}
	return string(id.Role)
}

func (g *Gate) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fwd, ok := g.Check(w, r)
			if !ok {
				return
			}
			next.ServeHTTP(w, fwd)
		})
	}
}

// AccessGate builds a Gate and returns it as a Middleware.
func AccessGate(policy access.Policy, resolver session.Resolver, logger *slog.Logger) Middleware {
	return NewGate(policy, resolver, logger).Middleware()
}
