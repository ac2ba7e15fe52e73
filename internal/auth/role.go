package auth

import "strings"

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
)

const (
	HomeStudent = "/dashboard"
	HomeOwner   = "/owner/dashboard"
	HomeAdmin   = "/admin"
)

// ParseRole accepts any casing; ok is false for values outside the closed set.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleOwner:
		return RoleOwner, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return RoleStudent, false
	}
}

// NormalizeRole maps unknown or empty roles to STUDENT (least privilege).
func NormalizeRole(raw string) Role {
	r, _ := ParseRole(raw)
	return r
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

func (r Role) Home() string {
	switch r {
	case RoleAdmin:
		return HomeAdmin
	case RoleOwner:
		return HomeOwner
	default:
		return HomeStudent
	}
}

func (r Role) String() string { return string(r) }
