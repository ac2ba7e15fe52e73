package router

import (
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// setWebSPARoutes serves the built frontend. Page paths reach this point
// only after the access gate in front of the engine allowed them.
func setWebSPARoutes(r *gin.Engine, opts Options) {
	// Static assets and the SPA shell; /api has its own gzip group, and its
	// unknown paths must keep their 404 status.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/", "/healthz", "/debug/"})))

	if opts.FrontendFS != nil {
		if sub, err := fs.Sub(opts.FrontendFS, "web/dist"); err == nil {
			r.Use(static.Serve("/", &embedFileSystem{FileSystem: http.FS(sub)}))
		}
	} else if distDir := strings.TrimSpace(opts.FrontendDistDir); distDir != "" {
		r.Use(static.Serve("/", &hideRootFileSystem{ServeFileSystem: static.LocalFile(distDir, false)}))
	}

	indexPage := opts.FrontendIndexPage
	if len(indexPage) == 0 {
		indexPage = defaultIndexPage()
	}

	r.NoRoute(func(c *gin.Context) {
		if isAPIPrefix(c.Request.URL.Path) {
			c.String(http.StatusNotFound, "404 page not found")
			return
		}
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
	})
}

// embedFileSystem adapts an fs.FS sub folder to static.ServeFileSystem.
type embedFileSystem struct {
	http.FileSystem
}

func (e *embedFileSystem) Exists(prefix string, p string) bool {
	_, err := e.Open(p)
	return err == nil
}

func (e *embedFileSystem) Open(name string) (http.File, error) {
	if name == "/" {
		return nil, os.ErrNotExist
	}
	return e.FileSystem.Open(name)
}

type hideRootFileSystem struct {
	static.ServeFileSystem
}

func (h *hideRootFileSystem) Exists(prefix string, p string) bool {
	if strings.TrimSpace(p) == "" || p == "/" {
		return false
	}
	return h.ServeFileSystem.Exists(prefix, p)
}

func (h *hideRootFileSystem) Open(name string) (http.File, error) {
	if name == "/" {
		return nil, os.ErrNotExist
	}
	return h.ServeFileSystem.Open(name)
}

func isAPIPrefix(p string) bool {
	p = strings.TrimSpace(p)
	switch {
	case p == "/api" || strings.HasPrefix(p, "/api/"):
		return true
	case p == "/healthz":
		return true
	case strings.HasPrefix(p, "/debug/"):
		return true
	default:
		return false
	}
}

func defaultIndexPage() []byte {
	return []byte(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Hallynk</title>
  </head>
  <body>
    <div style="font-family: system-ui, -apple-system, Segoe UI, Roboto, sans-serif; max-width: 720px; margin: 40px auto; padding: 0 16px;">
      <h1 style="margin: 0 0 12px;">Hallynk</h1>
      <p style="margin: 0 0 12px;">No frontend build was found (default path: <code>web/dist</code>).</p>
      <p style="margin: 0;">Build the frontend and restart the server.</p>
    </div>
  </body>
</html>`)
}
