package router

import (
	"github.com/gin-gonic/gin"

	"hallynk/internal/auth"
	"hallynk/internal/middleware"
)

func setSystemRoutes(r *gin.Engine, opts Options) {
	r.GET("/healthz", wrapHTTPFunc(opts.Healthz))
	r.HEAD("/healthz", wrapHTTPFunc(opts.Healthz))

	if opts.DebugVars != nil {
		r.GET("/debug/vars", wrapHTTP(middleware.Chain(opts.DebugVars,
			middleware.ResolveIdentity(opts.Resolver),
			middleware.RequireRoles(auth.RoleAdmin),
		)))
	}
}
