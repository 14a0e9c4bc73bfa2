package model

import "strings"

// Address is a saved delivery address from GET /userAddress.
type Address struct {
	ID            int    `json:"id"`
	Phone         string `json:"phone"`
	Province      string `json:"province"`
	District      string `json:"district"`
	Ward          string `json:"ward"`
	DetailAddress string `json:"detailAddress"`
	IsDefault     bool   `json:"isDefault"`
}

// Line joins the address parts from most to least specific.
func (a Address) Line() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.DetailAddress, a.Ward, a.District, a.Province} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// DefaultAddress returns the address flagged as default, if any.
func DefaultAddress(list []Address) (Address, bool) {
	for _, a := range list {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

// Category is a catalogue category label from GET /categories.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    FlexibleID `json:"id"`
		Name  string     `json:"name"`
		Email string     `json:"email"`
		Role  Role       `json:"role"`
	} `json:"user"`
}

// Identity flattens the response into a session identity.
func (r LoginResponse) Identity() Identity {
	return Identity{
		ID:    string(r.User.ID),
		Name:  r.User.Name,
		Email: r.User.Email,
		Role:  r.User.Role,
		Token: r.Token,
	}
}

// Profile is the body returned by GET /auth/me.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
