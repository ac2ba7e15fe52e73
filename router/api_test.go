package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"hallynk/internal/auth"
	"hallynk/internal/config"
	"hallynk/internal/limits"
	"hallynk/internal/session"
	"hallynk/internal/store"
)

const testCookieName = "hallynk_session"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEngine(t *testing.T, mutate ...func(*Options)) (*gin.Engine, *store.Store) {
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
	st := store.New(db)
	st.SetDialect(store.DialectSQLite)

	cs := cookie.NewStore(testSecret)
	cs.Options(sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(sessions.Sessions(testCookieName, cs))
	opts := Options{
		Store:                 st,
		Resolver:              session.NewCookieResolver(testCookieName, testSecret, 3600, session.StoreAccounts{Store: st}),
		Logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
		AllowOpenRegistration: true,
		Marketplace: config.MarketplaceConfig{
			Currency:     "GHS",
			MinRoomPrice: decimal.NewFromInt(100),
			MaxRoomPrice: decimal.NewFromInt(50000),
		},
		FrontendIndexPage: []byte("<!doctype html><html><body>INDEX</body></html>"),
	}
	for _, m := range mutate {
		m(&opts)
	}
	SetRouter(engine, opts)
	return engine, st
}

// apiClient keeps the session cookie between calls, like a browser would.
type apiClient struct {
	t       *testing.T
	engine  *gin.Engine
	cookies map[string]*http.Cookie
	userID  int64
}

func newClient(t *testing.T, engine *gin.Engine) *apiClient {
	return &apiClient{t: t, engine: engine, cookies: map[string]*http.Cookie{}}
}

func (c *apiClient) do(method, path string, body any) apiEnvelope {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if c.userID > 0 {
		req.Header.Set(UserHeader, strconv.FormatInt(c.userID, 10))
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.engine.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		c.t.Fatalf("%s %s: status=%d body=%s", method, path, rr.Code, rr.Body.String())
	}
	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	var env apiEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		c.t.Fatalf("%s %s: decode %q: %v", method, path, rr.Body.String(), err)
	}
	return env
}

func (c *apiClient) ok(method, path string, body any, out any) {
	c.t.Helper()
	env := c.do(method, path, body)
	if !env.Success {
		c.t.Fatalf("%s %s: expected success, got %q", method, path, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func (c *apiClient) fail(method, path string, body any, wantMsg string) {
	c.t.Helper()
	env := c.do(method, path, body)
	if env.Success {
		c.t.Fatalf("%s %s: expected failure, got success", method, path)
	}
	if !strings.Contains(env.Message, wantMsg) {
		c.t.Fatalf("%s %s: message=%q, want it to contain %q", method, path, env.Message, wantMsg)
	}
}

func (c *apiClient) register(email, role string) sessionResponse {
	c.t.Helper()
	var resp sessionResponse
	c.ok(http.MethodPost, "/api/auth/register", map[string]string{
		"email":     email,
		"full_name": "Test " + role,
		"password":  "correct horse",
		"role":      role,
	}, &resp)
	c.userID = resp.User.ID
	return resp
}

func TestAuth_RegisterLoginLogout(t *testing.T) {
	engine, _ := newTestEngine(t)

	admin := newClient(t, engine)
	first := admin.register("admin@hallynk.test", "STUDENT")
	if first.User.Role != "ADMIN" || first.Redirect != "/admin" {
		t.Fatalf("first user = %+v, want ADMIN with /admin", first)
	}

	student := newClient(t, engine)
	resp := student.register("kofi@st.ug.edu.gh", "")
	if resp.User.Role != "STUDENT" || resp.Redirect != "/dashboard" {
		t.Fatalf("student = %+v", resp)
	}

	var self struct {
		User userView `json:"user"`
		Home string   `json:"home"`
	}
	student.ok(http.MethodGet, "/api/user/self", nil, &self)
	if self.User.Email != "kofi@st.ug.edu.gh" || self.Home != "/dashboard" {
		t.Fatalf("self = %+v", self)
	}

	newClient(t, engine).fail(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "eve@x.test", "full_name": "Eve", "password": "correct horse", "role": "ADMIN",
	}, "role must be STUDENT or OWNER")
	newClient(t, engine).fail(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "kofi@st.ug.edu.gh", "full_name": "Kofi", "password": "correct horse",
	}, "email already registered")
	newClient(t, engine).fail(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "short@x.test", "full_name": "Short", "password": "abc",
	}, "at least 8")

	student.ok(http.MethodPost, "/api/auth/logout", nil, nil)
	student.fail(http.MethodGet, "/api/user/self", nil, "not signed in")

	anon := newClient(t, engine)
	anon.fail(http.MethodPost, "/api/auth/login", map[string]string{"email": "kofi@st.ug.edu.gh", "password": "wrong password"}, "invalid email or password")

	var login sessionResponse
	anon.ok(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "KOFI@st.ug.edu.gh", "password": "correct horse", "redirect": "/bookings/7",
	}, &login)
	if login.Redirect != "/bookings/7" {
		t.Fatalf("redirect = %q, want /bookings/7", login.Redirect)
	}
	anon.ok(http.MethodGet, "/api/user/self", nil, nil)
}

func identityFor(id int64, role string) auth.Identity {
	return auth.Identity{ID: id, Role: auth.Role(role), Source: auth.SourceSession}
}

func TestPostLoginTarget(t *testing.T) {
	student := identityFor(1, "STUDENT")
	owner := identityFor(2, "OWNER")
	cases := []struct {
		name      string
		requested string
		id        string
		want      string
	}{
		{"empty goes home", "", "STUDENT", "/dashboard"},
		{"local path kept", "/bookings/12", "STUDENT", "/bookings/12"},
		{"open redirect refused", "//evil.example/x", "STUDENT", "/dashboard"},
		{"absolute url refused", "https://evil.example/", "OWNER", "/owner/dashboard"},
		{"admin area not for students", "/admin/users", "STUDENT", "/dashboard"},
		{"auth page sends home", "/auth/login", "OWNER", "/owner/dashboard"},
		{"owner area for owners", "/owner/hostels", "OWNER", "/owner/hostels"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := student
			if tc.id == "OWNER" {
				id = owner
			}
			if got := postLoginTarget(tc.requested, id); got != tc.want {
				t.Fatalf("postLoginTarget(%q) = %q, want %q", tc.requested, got, tc.want)
			}
		})
	}
}

func TestAPI_UserHeaderRequiredForCookieWrites(t *testing.T) {
	engine, _ := newTestEngine(t)
	newClient(t, engine).register("admin@hallynk.test", "")

	student := newClient(t, engine)
	student.register("ama@st.knust.edu.gh", "STUDENT")
	id := student.userID

	student.userID = 0
	student.fail(http.MethodPost, "/api/bookings", map[string]any{"room_id": 1}, UserHeader)
	student.ok(http.MethodGet, "/api/bookings", nil, nil)

	student.userID = id + 100
	student.fail(http.MethodPost, "/api/bookings", map[string]any{"room_id": 1}, UserHeader)
}

func TestAPI_RoleGuards(t *testing.T) {
	engine, _ := newTestEngine(t)
	newClient(t, engine).register("admin@hallynk.test", "")
	student := newClient(t, engine)
	student.register("ama@st.knust.edu.gh", "STUDENT")

	student.fail(http.MethodGet, "/api/admin/users", nil, "insufficient permissions")
	student.fail(http.MethodGet, "/api/owner/hostels", nil, "insufficient permissions")
	newClient(t, engine).fail(http.MethodGet, "/api/dashboard", nil, "not signed in")
}

func TestAPI_MarketplaceFlow(t *testing.T) {
	engine, _ := newTestEngine(t)

	admin := newClient(t, engine)
	admin.register("admin@hallynk.test", "")
	owner := newClient(t, engine)
	owner.register("landlord@hallynk.test", "OWNER")
	student := newClient(t, engine)
	student.register("kofi@st.ug.edu.gh", "STUDENT")
	other := newClient(t, engine)
	other.register("esi@st.ug.edu.gh", "STUDENT")

	var h hostelView
	owner.ok(http.MethodPost, "/api/owner/hostels", map[string]any{
		"name":       "Legon Heights",
		"university": "University of Ghana",
		"location":   "East Legon",
		"amenities":  []string{"WiFi", "Water", "wifi"},
	}, &h)
	if h.Verified || len(h.Amenities) != 2 {
		t.Fatalf("hostel = %+v", h)
	}
	hostelPath := "/api/owner/hostels/" + strconv.FormatInt(h.ID, 10)

	owner.fail(http.MethodPost, hostelPath+"/rooms", map[string]any{"type": "DOUBLE", "price": "50", "capacity": 1}, "price must be between")
	var room roomView
	owner.ok(http.MethodPost, hostelPath+"/rooms", map[string]any{"type": "double", "price": "1200", "capacity": 1}, &room)
	if room.Price != "1200.00" || room.Available != 1 {
		t.Fatalf("room = %+v", room)
	}

	var listings []hostelView
	newClient(t, engine).ok(http.MethodGet, "/api/hostels?university=university+of+ghana", nil, &listings)
	if len(listings) != 0 {
		t.Fatalf("unverified hostel listed: %+v", listings)
	}
	newClient(t, engine).fail(http.MethodGet, "/api/hostels/"+strconv.FormatInt(h.ID, 10), nil, "hostel not found")
	student.fail(http.MethodPost, "/api/bookings", map[string]any{"room_id": room.ID}, "not verified")

	admin.ok(http.MethodPost, "/api/admin/hostels/"+strconv.FormatInt(h.ID, 10)+"/verify", map[string]bool{"verified": true}, nil)

	newClient(t, engine).ok(http.MethodGet, "/api/hostels?max_price=1500&room_type=DOUBLE", nil, &listings)
	if len(listings) != 1 || listings[0].MinPrice == nil || *listings[0].MinPrice != "1200.00" {
		t.Fatalf("listings = %+v", listings)
	}
	newClient(t, engine).ok(http.MethodGet, "/api/hostels?max_price=1000", nil, &listings)
	if len(listings) != 0 {
		t.Fatalf("price filter ignored: %+v", listings)
	}

	var b bookingView
	student.ok(http.MethodPost, "/api/bookings", map[string]any{"room_id": room.ID, "note": "first year"}, &b)
	if b.Status != "PENDING" || !strings.HasPrefix(b.Reference, "HLK-") || b.Amount != "1200.00" {
		t.Fatalf("booking = %+v", b)
	}
	bookingPath := "/api/bookings/" + strconv.FormatInt(b.ID, 10)

	other.fail(http.MethodGet, bookingPath, nil, "booking not found")
	owner.ok(http.MethodGet, "/api/bookings/lookup?reference="+strings.ToLower(b.Reference), nil, nil)

	student.fail(http.MethodPost, bookingPath+"/payments", map[string]string{"amount": "1000", "method": "MOMO"}, "does not match")
	var p paymentView
	student.ok(http.MethodPost, bookingPath+"/payments", map[string]string{"amount": "1200.00", "method": "momo", "provider_ref": "MTN-123"}, &p)
	if p.Status != "PENDING" {
		t.Fatalf("payment = %+v", p)
	}

	student.fail(http.MethodPost, "/api/payments/"+strconv.FormatInt(p.ID, 10)+"/status", map[string]string{"status": "SUCCESS"}, "insufficient permissions")
	owner.ok(http.MethodPost, "/api/payments/"+strconv.FormatInt(p.ID, 10)+"/status", map[string]string{"status": "SUCCESS"}, &p)
	if p.Status != "SUCCESS" || p.PaidAt == nil {
		t.Fatalf("payment = %+v", p)
	}

	student.ok(http.MethodGet, bookingPath, nil, &b)
	if b.Status != "CONFIRMED" {
		t.Fatalf("booking status = %s, want CONFIRMED", b.Status)
	}
	other.fail(http.MethodPost, "/api/bookings", map[string]any{"room_id": room.ID}, "no available slots")

	var od ownerDashboardView
	owner.ok(http.MethodGet, "/api/owner/dashboard", nil, &od)
	if od.Revenue != "1200.00" || od.Hostels != 1 || od.AvailableSlots != 0 || od.Bookings["CONFIRMED"] != 1 {
		t.Fatalf("owner dashboard = %+v", od)
	}

	owner.fail(http.MethodDelete, hostelPath, nil, "active bookings")

	student.ok(http.MethodPost, bookingPath+"/cancel", nil, &b)
	if b.Status != "CANCELLED" {
		t.Fatalf("booking status = %s", b.Status)
	}
	student.fail(http.MethodPost, bookingPath+"/cancel", nil, "invalid status transition")

	var rooms []roomView
	owner.ok(http.MethodGet, hostelPath+"/rooms", nil, &rooms)
	if len(rooms) != 1 || rooms[0].Available != 1 {
		t.Fatalf("rooms = %+v", rooms)
	}

	var sd studentDashboardView
	student.ok(http.MethodGet, "/api/dashboard", nil, &sd)
	if sd.Bookings["CANCELLED"] != 1 || len(sd.Recent) != 1 {
		t.Fatalf("student dashboard = %+v", sd)
	}

	var ad adminDashboardView
	admin.ok(http.MethodGet, "/api/admin/dashboard", nil, &ad)
	if ad.Users["STUDENT"] != 2 || ad.Users["OWNER"] != 1 || ad.Users["ADMIN"] != 1 || ad.PendingVerification != 0 {
		t.Fatalf("admin dashboard = %+v", ad)
	}

	var events []auditEventView
	admin.ok(http.MethodGet, "/api/admin/audit?target_type=booking", nil, &events)
	if len(events) != 1 || events[0].Detail != "CONFIRMED -> CANCELLED" || events[0].ActorID != student.userID {
		t.Fatalf("booking audit = %+v", events)
	}
	admin.ok(http.MethodGet, "/api/admin/audit", nil, &events)
	if len(events) != 3 {
		t.Fatalf("audit = %+v", events)
	}
}

func TestAPI_OwnersOnlyManageTheirHostels(t *testing.T) {
	engine, _ := newTestEngine(t)
	admin := newClient(t, engine)
	admin.register("admin@hallynk.test", "")
	owner := newClient(t, engine)
	owner.register("a@hallynk.test", "OWNER")
	rival := newClient(t, engine)
	rival.register("b@hallynk.test", "OWNER")

	var h hostelView
	owner.ok(http.MethodPost, "/api/owner/hostels", map[string]any{"name": "Kotei Lodge", "university": "KNUST"}, &h)
	path := "/api/owner/hostels/" + strconv.FormatInt(h.ID, 10)

	rival.fail(http.MethodPut, path, map[string]any{"name": "Mine now", "university": "KNUST"}, "another account")
	rival.fail(http.MethodPost, path+"/rooms", map[string]any{"type": "SINGLE", "price": "900", "capacity": 1}, "another account")

	admin.ok(http.MethodPut, path, map[string]any{"name": "Kotei Lodge Annex", "university": "KNUST"}, &h)
	if h.Name != "Kotei Lodge Annex" {
		t.Fatalf("name = %q", h.Name)
	}
	owner.ok(http.MethodDelete, path, nil, nil)
	owner.fail(http.MethodDelete, path, nil, "hostel not found")
}

func TestAPI_AdminUserManagement(t *testing.T) {
	engine, _ := newTestEngine(t)
	admin := newClient(t, engine)
	admin.register("admin@hallynk.test", "")
	student := newClient(t, engine)
	student.register("ama@st.knust.edu.gh", "STUDENT")
	userPath := "/api/admin/users/" + strconv.FormatInt(student.userID, 10)

	var users []userView
	admin.ok(http.MethodGet, "/api/admin/users?role=student", nil, &users)
	if len(users) != 1 || users[0].ID != student.userID {
		t.Fatalf("users = %+v", users)
	}

	admin.fail(http.MethodPost, "/api/admin/users/"+strconv.FormatInt(admin.userID, 10)+"/role", map[string]string{"role": "STUDENT"}, "their own")
	admin.fail(http.MethodPost, userPath+"/role", map[string]string{"role": "ROOT"}, "role must be")
	admin.ok(http.MethodPost, userPath+"/role", map[string]string{"role": "owner"}, nil)
	admin.ok(http.MethodGet, "/api/admin/users?role=OWNER", nil, &users)
	if len(users) != 1 {
		t.Fatalf("owners = %+v", users)
	}

	admin.ok(http.MethodPost, userPath+"/status", map[string]int{"status": store.UserStatusDisabled}, nil)
	newClient(t, engine).fail(http.MethodPost, "/api/auth/login", map[string]string{"email": "ama@st.knust.edu.gh", "password": "correct horse"}, "invalid email or password")
}

func TestAPI_Meta(t *testing.T) {
	engine, _ := newTestEngine(t)
	var meta struct {
		Currency     string   `json:"currency"`
		MinRoomPrice string   `json:"min_room_price"`
		RoomTypes    []string `json:"room_types"`
	}
	newClient(t, engine).ok(http.MethodGet, "/api/meta", nil, &meta)
	if meta.Currency != "GHS" || meta.MinRoomPrice != "100.00" || len(meta.RoomTypes) != 4 {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestAPI_WriteLimitsRefuseConcurrentWrites(t *testing.T) {
	lim := limits.NewUserLimits(1)
	engine, _ := newTestEngine(t, func(o *Options) { o.WriteLimits = lim })
	newClient(t, engine).register("admin@hallynk.test", "")
	student := newClient(t, engine)
	student.register("ama@st.knust.edu.gh", "STUDENT")

	if !lim.Acquire(student.userID) {
		t.Fatalf("acquire failed")
	}
	student.fail(http.MethodPost, "/api/bookings", map[string]any{"room_id": 1}, "too many requests")

	lim.Release(student.userID)
	student.fail(http.MethodPost, "/api/bookings", map[string]any{"room_id": 1}, "room not found")
	if got := lim.Inflight(student.userID); got != 0 {
		t.Fatalf("inflight=%d after request", got)
	}
}

func TestAuth_ConcurrentFirstRegistrationsCreateOneAdmin(t *testing.T) {
	engine, st := newTestEngine(t, func(o *Options) { o.AllowOpenRegistration = false })

	const n = 8
	var wg sync.WaitGroup
	results := make([]apiEnvelope, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]string{
				"email":     "student" + strconv.Itoa(i) + "@st.ug.edu.gh",
				"full_name": "Student",
				"password":  "correct horse",
				"role":      "STUDENT",
			})
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			engine.ServeHTTP(rr, req)
			_ = json.Unmarshal(rr.Body.Bytes(), &results[i])
		}(i)
	}
	wg.Wait()

	succeeded, closed := 0, 0
	for _, env := range results {
		switch {
		case env.Success:
			succeeded++
		case env.Message == "registration is closed":
			closed++
		default:
			t.Errorf("unexpected response: %+v", env)
		}
	}
	if succeeded != 1 || closed != n-1 {
		t.Fatalf("succeeded=%d closed=%d", succeeded, closed)
	}

	counts, err := st.CountUsersByRole(context.Background())
	if err != nil {
		t.Fatalf("CountUsersByRole: %v", err)
	}
	if counts[auth.RoleAdmin] != 1 || counts[auth.RoleStudent] != 0 {
		t.Fatalf("counts=%v", counts)
	}
}
