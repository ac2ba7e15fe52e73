package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"hallynk/internal/middleware"
)

func SetRouter(r *gin.Engine, opts Options) {
	setSystemRoutes(r, opts)

	api := r.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.Use(fromHTTP(middleware.MaxBytes(opts.APIMaxBodyBytes)))
	api.Use(fromHTTP(middleware.RequestTimeout(opts.APITimeout)))
	setMetaAPIRoutes(api, opts)
	setUserAPIRoutes(api, opts)
	setHostelAPIRoutes(api, opts)
	setOwnerAPIRoutes(api, opts)
	setBookingAPIRoutes(api, opts)
	setPaymentAPIRoutes(api, opts)
	setDashboardAPIRoutes(api, opts)
	setAdminAPIRoutes(api, opts)

	setWebSPARoutes(r, opts)
}
