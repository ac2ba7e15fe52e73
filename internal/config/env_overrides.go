package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func applyEnvOverrides(cfg *Config) {
	envString("HALLYNK_ENV", &cfg.Env)

	envString("HALLYNK_ADDR", &cfg.Server.Addr)
	envString("HALLYNK_PUBLIC_BASE_URL", &cfg.Server.PublicBaseURL)
	envDuration("HALLYNK_SERVER_READ_HEADER_TIMEOUT", &cfg.Server.ReadHeaderTimeout)
	envDuration("HALLYNK_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("HALLYNK_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("HALLYNK_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("HALLYNK_API_TIMEOUT", &cfg.Server.APITimeout)
	if v := os.Getenv("HALLYNK_API_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.APIMaxBodyBytes = n
		}
	}
	envString("HALLYNK_FRONTEND_DIST_DIR", &cfg.Server.FrontendDistDir)

	envString("HALLYNK_DB_DRIVER", &cfg.DB.Driver)
	envString("HALLYNK_DB_DSN", &cfg.DB.DSN)
	envString("HALLYNK_SQLITE_PATH", &cfg.DB.SQLitePath)

	envBool("HALLYNK_ALLOW_OPEN_REGISTRATION", &cfg.Security.AllowOpenRegistration)
	envBool("HALLYNK_DISABLE_SECURE_COOKIES", &cfg.Security.DisableSecureCookies)

	envString("HALLYNK_SESSION_COOKIE_NAME", &cfg.Session.CookieName)
	envString("HALLYNK_SESSION_SECRET", &cfg.Session.Secret)
	envDuration("HALLYNK_SESSION_MAX_AGE", &cfg.Session.MaxAge)

	envString("HALLYNK_REDIS_ADDR", &cfg.Redis.Addr)
	envString("HALLYNK_REDIS_PASSWORD", &cfg.Redis.Password)
	if v := os.Getenv("HALLYNK_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Redis.DB = n
		}
	}
	envDuration("HALLYNK_REDIS_IDENTITY_TTL", &cfg.Redis.IdentityTTL)

	envString("HALLYNK_AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	envString("HALLYNK_AUTH_JWT_ISSUER", &cfg.Auth.JWTIssuer)
	envString("HALLYNK_AUTH_JWT_AUDIENCE", &cfg.Auth.JWTAudience)

	envString("HALLYNK_CURRENCY", &cfg.Marketplace.Currency)
	if v := os.Getenv("HALLYNK_MIN_ROOM_PRICE"); v != "" {
		if d, err := parseDecimalNonNeg(v, 2); err == nil {
			cfg.Marketplace.MinRoomPrice = d
		}
	}
	if v := os.Getenv("HALLYNK_MAX_ROOM_PRICE"); v != "" {
		if d, err := parseDecimalNonNeg(v, 2); err == nil {
			cfg.Marketplace.MaxRoomPrice = d
		}
	}
	if v := os.Getenv("HALLYNK_UNIVERSITIES"); v != "" {
		cfg.Marketplace.Universities = splitList(v, ";")
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Unparsable values keep the default.
func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			*dst = d
		}
	}
}

func splitList(raw, sep string) []string {
	var out []string
	for _, p := range strings.Split(raw, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
