package server

import (
	"net/http"

	"github.com/gin-contrib/sessions"

	"hallynk/internal/config"
)

// sessionOptions is shared by the gin-contrib writer and the resolver so
// both agree on lifetime.
func sessionOptions(cfg config.Config) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Env != "dev" && !cfg.Security.DisableSecureCookies,
		// Lax keeps the session on the top-level navigation back from a
		// shared hostel link; writes still need the Hallynk-User header.
		SameSite: http.SameSiteLaxMode,
	}
}
