package model

import "strings"

type Role string

const (
	RoleCandidate Role = "candidate"
	RoleHR        Role = "hr"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a backend role string onto a Role. Admin accounts act with HR rights.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "hr":
		return RoleHR
	case "admin":
		return RoleAdmin
	default:
		return RoleCandidate
	}
}

// IsHR reports whether the role carries HR rights.
func (r Role) IsHR() bool {
	return r == RoleHR || r == RoleAdmin
}

// Actor is the authenticated user performing an operation.
// ID is kept as the raw string the backend returned; numeric coercion happens
// in the identity resolver so that a malformed id blocks the operation.
type Actor struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

func (a Actor) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
