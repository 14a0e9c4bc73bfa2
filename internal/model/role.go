package model

import "strings"

// Role is the access level attached to an identity.
type Role int

const (
	RoleNone Role = iota
	RoleCustomer
	RoleStaff
	RoleAdmin
)

// ParseRole maps the API's role string onto a Role. Unknown strings map to RoleNone.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "staff":
		return RoleStaff
	case "customer", "user":
		return RoleCustomer
	default:
		return RoleNone
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleStaff:
		return "staff"
	case RoleCustomer:
		return "customer"
	default:
		return ""
	}
}

// MarshalText encodes the role as its API string.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes an API role string.
func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// IsStaff reports whether the role may use the management screens.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Identity is the authenticated user as returned by POST /auth/login.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Token string `json:"token"`
}
