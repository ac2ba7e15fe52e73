// Package config reads service configuration from HALLYNK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env         string
	Server      ServerConfig
	DB          DBConfig
	Security    SecurityConfig
	Session     SessionConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Marketplace MarketplaceConfig
}

type ServerConfig struct {
	Addr          string
	PublicBaseURL string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// APIMaxBodyBytes caps JSON request bodies; <= 0 disables the limit.
	APIMaxBodyBytes int64
	APITimeout      time.Duration

	// FrontendDistDir holds the built SPA; page routes fall back to its index.html.
	FrontendDistDir string
}

type DBConfig struct {
	// Driver is one of sqlite, mysql, postgres. Empty means mysql when a DSN
	// is set and sqlite otherwise.
	Driver     string
	DSN        string
	SQLitePath string
}

type SecurityConfig struct {
	AllowOpenRegistration bool
	DisableSecureCookies  bool
}

type SessionConfig struct {
	CookieName string
	// Secret signs the session cookie. Required outside dev; a random one is
	// generated in dev, which logs everybody out on restart.
	Secret string
	MaxAge time.Duration
}

type RedisConfig struct {
	// Addr empty disables the identity cache.
	Addr        string
	Password    string
	DB          int
	IdentityTTL time.Duration
}

// AuthConfig configures bearer tokens issued by the hosted auth provider.
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

type MarketplaceConfig struct {
	Currency string
	// MinRoomPrice and MaxRoomPrice bound what owners may list, per semester.
	MinRoomPrice decimal.Decimal
	MaxRoomPrice decimal.Decimal
	Universities []string
}

func LoadFromEnv() (Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(&cfg)
	return normalizeAndValidate(cfg)
}

func defaultConfig() Config {
	return Config{
		Env: "dev",
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			APIMaxBodyBytes:   1 << 20,
			APITimeout:        15 * time.Second,
			FrontendDistDir:   "./web/dist",
		},
		DB: DBConfig{
			SQLitePath: "./data/hallynk.db?_pragma=busy_timeout(30000)",
		},
		Security: SecurityConfig{
			AllowOpenRegistration: true,
		},
		Session: SessionConfig{
			CookieName: "hallynk_session",
			MaxAge:     30 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			IdentityTTL: 30 * time.Second,
		},
		Marketplace: MarketplaceConfig{
			Currency:     "GHS",
			MinRoomPrice: decimal.NewFromInt(100),
			MaxRoomPrice: decimal.NewFromInt(50000),
			Universities: []string{
				"University of Ghana",
				"KNUST",
				"University of Cape Coast",
				"University of Education, Winneba",
				"Ashesi University",
				"University for Development Studies",
			},
		},
	}
}

func normalizeAndValidate(cfg Config) (Config, error) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, errors.New("server.addr must not be empty")
	}
	base, err := NormalizeHTTPBaseURL(cfg.Server.PublicBaseURL, "server.public_base_url")
	if err != nil {
		return Config{}, err
	}
	cfg.Server.PublicBaseURL = base
	cfg.Server.FrontendDistDir = strings.TrimSpace(cfg.Server.FrontendDistDir)

	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.DB.DSN = strings.TrimSpace(cfg.DB.DSN)
	cfg.DB.SQLitePath = strings.TrimSpace(cfg.DB.SQLitePath)
	if cfg.DB.Driver == "" {
		if cfg.DB.DSN != "" {
			cfg.DB.Driver = "mysql"
		} else {
			cfg.DB.Driver = "sqlite"
		}
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if cfg.DB.SQLitePath == "" {
			return Config{}, errors.New("db.sqlite_path must not be empty (db.driver=sqlite)")
		}
	case "mysql", "postgres":
		if cfg.DB.DSN == "" {
			return Config{}, fmt.Errorf("db.dsn must not be empty (db.driver=%s)", cfg.DB.Driver)
		}
	default:
		return Config{}, fmt.Errorf("db.driver %q is not supported (sqlite, mysql, postgres)", cfg.DB.Driver)
	}

	cfg.Session.CookieName = strings.TrimSpace(cfg.Session.CookieName)
	if cfg.Session.CookieName == "" {
		return Config{}, errors.New("session.cookie_name must not be empty")
	}
	cfg.Session.Secret = strings.TrimSpace(cfg.Session.Secret)
	if cfg.Session.Secret != "" && len(cfg.Session.Secret) < 32 {
		return Config{}, errors.New("session.secret must be at least 32 bytes")
	}
	if cfg.Session.Secret == "" && cfg.Env != "dev" {
		return Config{}, errors.New("session.secret is required outside dev")
	}
	if cfg.Session.MaxAge <= 0 {
		return Config{}, errors.New("session.max_age must be positive")
	}

	cfg.Redis.Addr = strings.TrimSpace(cfg.Redis.Addr)
	if cfg.Redis.IdentityTTL <= 0 {
		cfg.Redis.IdentityTTL = 30 * time.Second
	}

	cfg.Auth.JWTSecret = strings.TrimSpace(cfg.Auth.JWTSecret)
	cfg.Auth.JWTIssuer = strings.TrimSpace(cfg.Auth.JWTIssuer)
	cfg.Auth.JWTAudience = strings.TrimSpace(cfg.Auth.JWTAudience)

	cfg.Marketplace.Currency = strings.ToUpper(strings.TrimSpace(cfg.Marketplace.Currency))
	if cfg.Marketplace.Currency == "" {
		cfg.Marketplace.Currency = "GHS"
	}
	if cfg.Marketplace.MaxRoomPrice.LessThan(cfg.Marketplace.MinRoomPrice) {
		return Config{}, errors.New("marketplace.max_room_price must not be below marketplace.min_room_price")
	}
	return cfg, nil
}

// BearerEnabled reports whether hosted-provider tokens are accepted.
func (c Config) BearerEnabled() bool { return c.Auth.JWTSecret != "" }

func NormalizeHTTPBaseURL(raw string, label string) (string, error) {
	v := strings.TrimRight(strings.TrimSpace(raw), "/")
	if v == "" {
		return "", nil
	}
	if strings.TrimSpace(label) == "" {
		label = "base_url"
	}
	u, err := url.Parse(v)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", label, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s must use http or https", label)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%s host must not be empty", label)
	}
	return v, nil
}

func parseDecimalNonNeg(raw string, scale int32) (decimal.Decimal, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "+")
	if s == "" {
		return decimal.Zero, errors.New("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("amount is not a number")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("amount must not be negative")
	}
	if d.Exponent() < -scale {
		return decimal.Zero, fmt.Errorf("at most %d decimal places", scale)
	}
	return d.Truncate(scale), nil
}
