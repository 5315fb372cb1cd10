package domain

import (
	"strings"
	"time"
)

// Role is the authorization level of a user account.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// ParseRole converts a stored role string into a Role, falling back to
// RoleCustomer for anything unrecognised.
func ParseRole(s string) Role {
	if r := Role(strings.ToLower(strings.TrimSpace(s))); r.Valid() {
		return r
	}
	return RoleCustomer
}

// User is an account together with its profile fields.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	HeightCm     *float64  `json:"height_cm,omitempty"`
	Birthday     *Date     `json:"birthday,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	TaxID        string    `json:"tax_id,omitempty"`
	Address      string    `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// ProfileUpdate carries the user-editable profile fields. Nil pointers are
// left untouched.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	HeightCm *float64
	Birthday *Date
	Phone    *string
	TaxID    *string
	Address  *string
}

// Apply copies every non-nil field of p onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.HeightCm != nil {
		h := *p.HeightCm
		u.HeightCm = &h
	}
	if p.Birthday != nil {
		b := *p.Birthday
		u.Birthday = &b
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.TaxID != nil {
		u.TaxID = *p.TaxID
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
}

// NormalizeEmail lowercases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Principal is the authenticated actor of a single request. Role always comes
// from a live lookup, never from the token.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
