package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"hallynk/internal/config"
	"hallynk/internal/store"
	"hallynk/internal/version"
)

func testConfig() config.Config {
	return config.Config{
		Env: "dev",
		Session: config.SessionConfig{
			CookieName: "hallynk_session",
			Secret:     "0123456789abcdef0123456789abcdef",
			MaxAge:     time.Hour,
		},
		Security: config.SecurityConfig{AllowOpenRegistration: true},
		Redis:    config.RedisConfig{IdentityTTL: time.Minute},
		Marketplace: config.MarketplaceConfig{
			Currency:     "GHS",
			MinRoomPrice: decimal.NewFromInt(100),
			MaxRoomPrice: decimal.NewFromInt(50000),
		},
	}
}

func newTestApp(t *testing.T, rdb redis.UniversalClient) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "hallynk.db") + "?_pragma=busy_timeout(1000)")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.EnsureSchema(db, store.DialectSQLite); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	app, err := NewApp(AppOptions{
		Config:  testConfig(),
		DB:      db,
		Dialect: store.DialectSQLite,
		Version: version.BuildInfo{Version: "test"},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Redis:   rdb,
	})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

type browser struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
	userID  int64
}

func (b *browser) request(method, path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.userID > 0 {
		req.Header.Set("Hallynk-User", strconv.FormatInt(b.userID, 10))
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	b.h.ServeHTTP(rr, req)
	if set := rr.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return rr
}

func (b *browser) register(email, role string) {
	b.t.Helper()
	rr := b.request(http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "full_name": email, "password": "correct horse", "role": role,
	})
	var env struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			User struct {
				ID int64 `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || !env.Success {
		b.t.Fatalf("register %s: %s", email, rr.Body.String())
	}
	b.userID = env.Data.User.ID
}

func TestApp_AnonymousProtectedPageRedirectsToLogin(t *testing.T) {
	app := newTestApp(t, nil)
	b := &browser{t: t, h: app.Handler()}

	rr := b.request(http.MethodGet, "/bookings/HLK-1A2B", nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/auth/login?redirect=/bookings/HLK-1A2B" {
		t.Fatalf("Location=%q", got)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("Cache-Control=%q", rr.Header().Get("Cache-Control"))
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("redirect set cookies: %v", rr.Result().Cookies())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id")
	}

	rr = b.request(http.MethodGet, "/hostels", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Hallynk") {
		t.Fatalf("public page status=%d body=%q", rr.Code, rr.Body.String())
	}
	rr = b.request(http.MethodGet, "/auth/login", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login page status=%d", rr.Code)
	}
}

func TestApp_SignedInRoutingFollowsRole(t *testing.T) {
	app := newTestApp(t, nil)
	admin := &browser{t: t, h: app.Handler()}
	admin.register("admin@hallynk.test", "")
	student := &browser{t: t, h: app.Handler()}
	student.register("kofi@st.ug.edu.gh", "STUDENT")

	cases := []struct {
		b        *browser
		path     string
		code     int
		location string
	}{
		{student, "/dashboard", http.StatusOK, ""},
		{student, "/admin/users", http.StatusFound, "/dashboard"},
		{student, "/owner/hostels", http.StatusFound, "/dashboard"},
		{student, "/auth/login", http.StatusFound, "/dashboard"},
		{student, "/bookings", http.StatusOK, ""},
		{admin, "/admin", http.StatusOK, ""},
		{admin, "/owner/dashboard", http.StatusOK, ""},
		{admin, "/auth/register", http.StatusFound, "/admin"},
	}
	for _, tc := range cases {
		rr := tc.b.request(http.MethodGet, tc.path, nil)
		if rr.Code != tc.code || rr.Header().Get("Location") != tc.location {
			t.Errorf("GET %s: status=%d Location=%q, want %d %q", tc.path, rr.Code, rr.Header().Get("Location"), tc.code, tc.location)
		}
	}
}

func TestApp_TamperedCookieIsAnonymous(t *testing.T) {
	app := newTestApp(t, nil)
	b := &browser{t: t, h: app.Handler()}
	b.cookies = []*http.Cookie{{Name: "hallynk_session", Value: "not-a-real-session"}}

	rr := b.request(http.MethodGet, "/dashboard", nil)
	if rr.Code != http.StatusFound || !strings.HasPrefix(rr.Header().Get("Location"), "/auth/login") {
		t.Fatalf("status=%d Location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestApp_Healthz(t *testing.T) {
	app := newTestApp(t, nil)
	rr := (&browser{t: t, h: app.Handler()}).request(http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		OK      bool   `json:"ok"`
		DBOK    bool   `json:"db_ok"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK || !out.DBOK || out.Version != "test" {
		t.Fatalf("healthz=%+v", out)
	}
}

func TestApp_DebugVarsAdminOnly(t *testing.T) {
	app := newTestApp(t, nil)
	admin := &browser{t: t, h: app.Handler()}
	admin.register("admin@hallynk.test", "")
	student := &browser{t: t, h: app.Handler()}
	student.register("kofi@st.ug.edu.gh", "STUDENT")

	if rr := (&browser{t: t, h: app.Handler()}).request(http.MethodGet, "/debug/vars", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status=%d", rr.Code)
	}
	if rr := student.request(http.MethodGet, "/debug/vars", nil); rr.Code != http.StatusForbidden {
		t.Fatalf("student status=%d", rr.Code)
	}
	rr := admin.request(http.MethodGet, "/debug/vars", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "access_decisions_total") {
		t.Fatalf("admin status=%d body=%.200s", rr.Code, rr.Body.String())
	}
}

func TestApp_RoleChangeInvalidatesCachedIdentity(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	app := newTestApp(t, rdb)
	admin := &browser{t: t, h: app.Handler()}
	admin.register("admin@hallynk.test", "")
	student := &browser{t: t, h: app.Handler()}
	student.register("kofi@st.ug.edu.gh", "STUDENT")

	key := "hallynk:identity:" + strconv.FormatInt(student.userID, 10)
	if rr := student.request(http.MethodGet, "/dashboard", nil); rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	if !mr.Exists(key) {
		t.Fatalf("identity %s not cached", key)
	}

	rr := admin.request(http.MethodPost, "/api/admin/users/"+strconv.FormatInt(student.userID, 10)+"/role", map[string]string{"role": "OWNER"})
	if !strings.Contains(rr.Body.String(), `"success":true`) {
		t.Fatalf("role change: %s", rr.Body.String())
	}
	if mr.Exists(key) {
		t.Fatalf("identity %s still cached after role change", key)
	}
}

func TestApp_PasswordChangeRetiresOlderCookies(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	for name, client := range map[string]redis.UniversalClient{"store": nil, "cached": rdb} {
		t.Run(name, func(t *testing.T) {
			app := newTestApp(t, client)
			admin := &browser{t: t, h: app.Handler()}
			admin.register("admin-"+name+"@hallynk.test", "")
			if rr := admin.request(http.MethodGet, "/admin", nil); rr.Code != http.StatusOK {
				t.Fatalf("admin before change: status=%d", rr.Code)
			}

			// Another device holding the same session, in the same second.
			other := &browser{t: t, h: app.Handler(), userID: admin.userID}
			other.cookies = append(other.cookies, admin.cookies...)

			rr := admin.request(http.MethodPost, "/api/user/password", map[string]string{
				"old_password": "correct horse", "new_password": "battery staple",
			})
			if !strings.Contains(rr.Body.String(), `"success":true`) {
				t.Fatalf("password change: %s", rr.Body.String())
			}

			rr = other.request(http.MethodGet, "/admin", nil)
			if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/auth/login?redirect=/admin" {
				t.Fatalf("old cookie: status=%d Location=%q", rr.Code, rr.Header().Get("Location"))
			}
			if rr := admin.request(http.MethodGet, "/admin", nil); rr.Code != http.StatusOK {
				t.Fatalf("reissued cookie: status=%d Location=%q", rr.Code, rr.Header().Get("Location"))
			}
		})
	}
}

func TestApp_UnknownAPIPathIsNotFound(t *testing.T) {
	app := newTestApp(t, nil)
	for _, enc := range []string{"", "gzip"} {
		req := httptest.NewRequest(http.MethodGet, "/api/no-such-endpoint", nil)
		if enc != "" {
			req.Header.Set("Accept-Encoding", enc)
		}
		rr := httptest.NewRecorder()
		app.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("Accept-Encoding=%q: status=%d body=%q", enc, rr.Code, rr.Body.String())
		}
		if rr.Body.Len() == 0 {
			t.Fatalf("Accept-Encoding=%q: empty body", enc)
		}
	}
}
