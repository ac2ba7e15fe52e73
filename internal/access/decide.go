package access

import "hallynk/internal/auth"

type Action int

const (
	Allow Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "allow"
}

// Decision carries Target only when Action is Redirect.
type Decision struct {
	Action Action
	Target string
	Reason string
}

func allow(reason string) Decision {
	return Decision{Action: Allow, Reason: reason}
}

func redirect(target, reason string) Decision {
	return Decision{Action: Redirect, Target: target, Reason: reason}
}

var defaultPolicy = DefaultPolicy()

// Decide applies DefaultPolicy.
func Decide(path string, id *auth.Identity) Decision {
	return defaultPolicy.Decide(path, id)
}

// Decide evaluates the rules in priority order; the first match wins:
//
//  1. auth page, signed in      -> role home
//  2. auth page, anonymous      -> allow
//  3. protected, anonymous      -> login?redirect=path
//  4. exactly the role home     -> allow
//  5. role outside rule roles   -> role home (the /admin and /owner checks)
//  6. otherwise                 -> allow
func (p Policy) Decide(rawPath string, id *auth.Identity) Decision {
	path := NormalizePath(rawPath)

	if p.IsAuthPage(path) {
		if id != nil {
			return redirect(id.Home(), "signed_in_on_auth_page")
		}
		return allow("auth_page")
	}

	rule, protected := p.Match(path)
	if !protected {
		return allow("public")
	}
	if id == nil {
		return redirect(LoginRedirect(p.LoginPath, path), "login_required")
	}
	if path == id.Home() {
		return allow("role_home")
	}
	if !rule.Allows(id.Role) {
		return redirect(id.Home(), "role_denied")
	}
	return allow("authorized")
}
