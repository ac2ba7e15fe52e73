package session

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	gsessions "github.com/gorilla/sessions"

	"hallynk/internal/auth"
)

// Keys written into the cookie session at login.
const (
	UserIDKey             = "id"
	UserSessionVersionKey = "session_version"
)

// CookieResolver reads the signed cookie that the web layer writes through
// gin-contrib/sessions. Both sides share the gorilla securecookie codec, so
// the same name and secret decode what the login handler encoded. The role
// always comes from Accounts, never from the cookie.
type CookieResolver struct {
	name     string
	cookies  *gsessions.CookieStore
	accounts Accounts
}

// NewCookieResolver uses maxAge (seconds) to reject cookies older than the
// session lifetime even if the browser kept them.
func NewCookieResolver(name string, secret []byte, maxAge int, accounts Accounts) *CookieResolver {
	cs := gsessions.NewCookieStore(secret)
	if maxAge > 0 {
		cs.MaxAge(maxAge)
	}
	return &CookieResolver{name: name, cookies: cs, accounts: accounts}
}

func (cr *CookieResolver) Resolve(r *http.Request) (*auth.Identity, error) {
	if c, err := r.Cookie(cr.name); err != nil || strings.TrimSpace(c.Value) == "" {
		return nil, nil
	}
	sess, err := cr.cookies.New(r, cr.name)
	if err != nil || sess.IsNew {
		return nil, nil
	}
	userID, ok := int64Value(sess.Values[UserIDKey])
	if !ok {
		return nil, nil
	}

	acct, err := cr.accounts.AccountByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNoAccount) {
			return nil, nil
		}
		return nil, resolutionError("load session account", err)
	}
	if issued, ok := int64Value(sess.Values[UserSessionVersionKey]); !ok || issued != acct.SessionVersion {
		// Credentials, role or status changed after this cookie was issued.
		return nil, nil
	}
	return IdentityFromAccount(acct, auth.SourceSession), nil
}

func int64Value(v any) (int64, bool) {
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case int:
		n = int64(x)
	case float64:
		n = int64(x)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	return n, n > 0
}
