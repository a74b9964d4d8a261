// Package auth manages shopper and admin accounts and the bearer tokens that
// identify them.
package auth

import (
	"time"

	"github.com/glowcare/storefront/internal/platform/httpx"
)

// Role distinguishes shoppers from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a shopper account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MiddleName   string    `json:"middleName,omitempty"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Admin represents a catalog administrator.
type Admin struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProfileUpdate lists the profile fields a shopper may change. Nil pointers
// keep the stored value.
type ProfileUpdate struct {
	Name    *string
	Address *string
	Phone   *string
	Avatar  *string
}

var (
	ErrInvalidCredentials = httpx.NewError("invalid credentials", httpx.ErrUnauthorized)
	ErrMissingToken       = httpx.NewError("access denied, no token provided", httpx.ErrUnauthorized)
	ErrInvalidToken       = httpx.NewError("invalid or expired token", httpx.ErrUnauthorized)
	ErrAdminRequired      = httpx.NewError("admin privileges required", httpx.ErrForbidden)
	ErrEmailTaken         = httpx.NewError("email already exists", httpx.ErrDuplicate)
	ErrUsernameTaken      = httpx.NewError("username already exists", httpx.ErrDuplicate)
	ErrUserNotFound       = httpx.NewError("user not found", httpx.ErrNotFound)
	ErrInvalidInput       = httpx.NewError("invalid input", httpx.ErrValidation)
)
