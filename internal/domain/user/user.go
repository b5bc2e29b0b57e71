package user

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// Role is a closed enumeration. Every authorization check switches on
// it exhaustively instead of comparing ad hoc strings.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole maps client-supplied role names onto the enum. Unknown
// values fall back to the standard role rather than failing.
func ParseRole(raw string) Role {
	switch raw {
	case "admin", "Admin":
		return RoleAdmin
	default:
		return RoleUser
	}
}

// OneTimeToken is an optional single-use credential stored inline on
// the user row. It is consumed atomically by the repository
// (match-and-clear in one statement) so a token can never validate
// twice under concurrent requests.
type OneTimeToken struct {
	Value     string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

func (t *OneTimeToken) Expired(now time.Time) bool {
	return t == nil || now.After(t.ExpiresAt)
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	IsVerified   bool      `json:"isVerified"`
	LastLoginAt  time.Time `json:"lastLoginAt"`

	Verification *OneTimeToken `json:"-"`
	Reset        *OneTimeToken `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPendingVerification reports whether a still-valid verification
// code is outstanding. For standard accounts exactly one of
// {pending verification, verified} holds at any time.
func (u User) HasPendingVerification(now time.Time) bool {
	return !u.IsVerified && u.Verification != nil && !u.Verification.Expired(now)
}
