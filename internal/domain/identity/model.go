// Package identity owns user accounts, registration, and login.
package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	return s == RolePatient || s == RoleDoctor || s == RoleAdmin
}

var (
	ErrNotFound           = errors.New("identity: user not found")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrUsernameTaken      = errors.New("identity: username already taken")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// ValidationError reports a malformed registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "identity: invalid " + e.Field + ": " + e.Reason
}

// User is an account principal. WalletAddress is the delegate principal the
// access oracle recognizes; optional, but required before creating records or
// requesting delegated reads.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	Username      string    `db:"username" json:"username"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	WalletAddress *string   `db:"wallet_address" json:"wallet_address,omitempty"`
	Role          string    `db:"role" json:"role"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Wallet returns the wallet address or the empty string.
func (u *User) Wallet() string {
	if u.WalletAddress == nil {
		return ""
	}
	return *u.WalletAddress
}
