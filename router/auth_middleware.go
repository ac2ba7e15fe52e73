package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hallynk/internal/auth"
)

// UserHeader must echo the signed-in user id on state-changing cookie
// requests. A cross-site form cannot set custom headers.
const UserHeader = "Hallynk-User"

const identityContextKey = "hlk_identity"

// requireIdentity resolves the caller for API routes, which the page gate
// does not cover, and answers in the JSON envelope instead of redirecting.
func requireIdentity(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := resolveIdentity(c, opts)
		if !ok {
			respondFail(c, "not signed in")
			c.Abort()
			return
		}
		if id.ID <= 0 {
			respondFail(c, "no Hallynk account is linked to this login")
			c.Abort()
			return
		}
		if id.Source == auth.SourceSession && !safeMethod(c.Request.Method) {
			headerID, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(UserHeader)), 10, 64)
			if err != nil || headerID != id.ID {
				respondFail(c, "missing or invalid "+UserHeader+" header")
				c.Abort()
				return
			}
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Set(identityContextKey, id)
		c.Next()
	}
}

func requireRoles(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := currentIdentity(c)
		if !ok {
			respondFail(c, "not signed in")
			c.Abort()
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		respondFail(c, "insufficient permissions")
		c.Abort()
	}
}

func resolveIdentity(c *gin.Context, opts Options) (auth.Identity, bool) {
	if id, ok := auth.IdentityFromContext(c.Request.Context()); ok {
		return id, true
	}
	if opts.Resolver == nil {
		return auth.Identity{}, false
	}
	id, err := opts.Resolver.Resolve(c.Request)
	if err != nil {
		opts.logger().Warn("api session resolution failed", "path", c.Request.URL.Path, "err", err)
		return auth.Identity{}, false
	}
	if id == nil {
		return auth.Identity{}, false
	}
	return *id, true
}

func currentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// limitWrites refuses a booking or payment write while the same account
// already has one in flight. Runs after requireIdentity.
func limitWrites(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.WriteLimits == nil {
			c.Next()
			return
		}
		id, _ := currentIdentity(c)
		if !opts.WriteLimits.Acquire(id.ID) {
			respondFail(c, "too many requests in progress, please wait")
			c.Abort()
			return
		}
		defer opts.WriteLimits.Release(id.ID)
		c.Next()
	}
}
