// Package server wires configuration, storage, sessions and routes so main stays small.
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"expvar"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	root "hallynk"
	"hallynk/internal/access"
	"hallynk/internal/config"
	"hallynk/internal/limits"
	"hallynk/internal/middleware"
	"hallynk/internal/session"
	"hallynk/internal/store"
	"hallynk/internal/version"
	"hallynk/router"
)

// maxInflightWritesPerUser bounds concurrent booking and payment writes per account.
const maxInflightWritesPerUser = 2

type AppOptions struct {
	Config  config.Config
	DB      *sql.DB
	Dialect store.Dialect
	Version version.BuildInfo
	Logger  *slog.Logger

	// Redis backs the identity cache. Optional.
	Redis redis.UniversalClient
}

type App struct {
	cfg      config.Config
	db       *sql.DB
	store    *store.Store
	version  version.BuildInfo
	logger   *slog.Logger
	resolver session.Resolver
	engine   *gin.Engine
	handler  http.Handler
}

func NewApp(opts AppOptions) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st := store.New(opts.DB)
	st.SetDialect(opts.Dialect)

	secret := cfg.Session.Secret
	if secret == "" {
		// Only reachable in dev; normalizeAndValidate requires a secret elsewhere.
		logger.Warn("session secret not configured, sessions will not survive a restart")
		secret = randomSecret(32)
	}
	sessOpts := sessionOptions(cfg)

	var accounts session.Accounts = session.StoreAccounts{Store: st}
	var identities router.IdentityInvalidator
	if opts.Redis != nil {
		cached := &session.CachedAccounts{
			Next:  accounts,
			Cache: session.NewRedisIdentityCache(opts.Redis, ""),
			TTL:   cfg.Redis.IdentityTTL,
		}
		accounts = cached
		identities = cached
	}

	resolvers := session.Chain{}
	if cfg.BearerEnabled() {
		resolvers = append(resolvers, &session.BearerResolver{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.JWTIssuer,
			Audience: cfg.Auth.JWTAudience,
			Accounts: accounts,
		})
	}
	resolvers = append(resolvers, session.NewCookieResolver(cfg.Session.CookieName, []byte(secret), sessOpts.MaxAge, accounts))

	app := &App{
		cfg:      cfg,
		db:       opts.DB,
		store:    st,
		version:  opts.Version,
		logger:   logger,
		resolver: resolvers,
	}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	sessionStore := cookie.NewStore([]byte(secret))
	sessionStore.Options(sessOpts)
	engine.Use(sessions.Sessions(cfg.Session.CookieName, sessionStore))

	var frontendFS fs.FS
	frontendIndexPage := loadEmbeddedIndexHTML()
	if len(frontendIndexPage) > 0 {
		frontendFS = root.WebDistFS
	}

	router.SetRouter(engine, router.Options{
		Store:                 st,
		Resolver:              resolvers,
		Identities:            identities,
		WriteLimits:           limits.NewUserLimits(maxInflightWritesPerUser),
		Logger:                logger,
		AllowOpenRegistration: cfg.Security.AllowOpenRegistration,
		Marketplace:           cfg.Marketplace,
		APIMaxBodyBytes:       cfg.Server.APIMaxBodyBytes,
		APITimeout:            cfg.Server.APITimeout,
		FrontendDistDir:       cfg.Server.FrontendDistDir,
		FrontendIndexPage:     frontendIndexPage,
		FrontendFS:            frontendFS,
		Healthz:               app.handleHealthz,
		DebugVars:             expvar.Handler(),
	})
	app.engine = engine

	// The gate runs in front of gin so static files and the SPA fallback
	// are covered the same way as any registered page route.
	app.handler = middleware.Chain(engine,
		middleware.RequestID,
		middleware.AccessGate(access.DefaultPolicy(), resolvers, logger),
		middleware.AccessLog(logger),
	)
	return app, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func randomSecret(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func loadEmbeddedIndexHTML() []byte {
	if root.WebDistFS == nil {
		return nil
	}
	b, err := fs.ReadFile(root.WebDistFS, "web/dist/index.html")
	if err != nil || len(b) == 0 {
		return nil
	}
	return b
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		OK      bool   `json:"ok"`
		Env     string `json:"env"`
		Version string `json:"version"`
		Date    string `json:"date"`

		DBOK bool `json:"db_ok"`

		AllowOpenRegistration bool `json:"allow_open_registration"`
		BearerAuth            bool `json:"bearer_auth"`
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	dbOK := a.store.Ping(ctx) == nil

	out := resp{
		OK:                    dbOK,
		Env:                   a.cfg.Env,
		Version:               a.version.Version,
		Date:                  a.version.Date,
		DBOK:                  dbOK,
		AllowOpenRegistration: a.cfg.Security.AllowOpenRegistration,
		BearerAuth:            a.cfg.BearerEnabled(),
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if !dbOK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(out)
}
