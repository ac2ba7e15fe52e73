// Package access holds the page-route policy table and the redirect decision made for every request.
//
// The decision is a pure function of (path, identity). It never touches the
// network or the session; resolving the identity is the caller's job.
package access

import (
	"net/url"
	"path"
	"slices"
	"strings"

	"hallynk/internal/auth"
)

const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"

	RedirectParam = "redirect"
)

// Rule protects every path at or below Prefix. Empty Roles means any authenticated identity.
type Rule struct {
	Prefix string
	Roles  []auth.Role
}

func (r Rule) Allows(role auth.Role) bool {
	return len(r.Roles) == 0 || slices.Contains(r.Roles, role)
}

// Policy is built once at startup and shared read-only across requests.
type Policy struct {
	LoginPath string
	AuthPages []string
	Protected []Rule
}

func DefaultPolicy() Policy {
	return Policy{
		LoginPath: LoginPath,
		AuthPages: []string{LoginPath, RegisterPath},
		Protected: []Rule{
			{Prefix: "/dashboard"},
			{Prefix: "/owner", Roles: []auth.Role{auth.RoleOwner, auth.RoleAdmin}},
			{Prefix: "/bookings"},
			{Prefix: "/admin", Roles: []auth.Role{auth.RoleAdmin}},
		},
	}
}

func (p Policy) IsAuthPage(normalized string) bool {
	return slices.Contains(p.AuthPages, normalized)
}

// Match returns the first protected rule covering the normalized path.
func (p Policy) Match(normalized string) (Rule, bool) {
	for _, r := range p.Protected {
		if underPrefix(normalized, r.Prefix) {
			return r, true
		}
	}
	return Rule{}, false
}

// Relevant reports whether the decision for path can depend on the identity.
// For every other path the decision is ALLOW regardless of who is asking.
func (p Policy) Relevant(rawPath string) bool {
	n := NormalizePath(rawPath)
	if p.IsAuthPage(n) {
		return true
	}
	_, ok := p.Match(n)
	return ok
}

// NormalizePath returns a cleaned, slash-rooted path without a trailing slash.
func NormalizePath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}

func underPrefix(p, prefix string) bool {
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

// LoginRedirect builds "<login>?redirect=<path>". The path is query-escaped
// except for '/', so "/bookings/12" stays readable in the Location header.
func LoginRedirect(login, original string) string {
	esc := strings.ReplaceAll(url.QueryEscape(original), "%2F", "/")
	return login + "?" + RedirectParam + "=" + esc
}

// SafeRedirect returns raw when it is a local absolute path, otherwise fallback.
func SafeRedirect(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return fallback
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return raw
}
