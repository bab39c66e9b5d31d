package auth

import (
	"errors"
	"time"
)

// User represents a registered user account.
type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// APIToken represents an API token. The plaintext token is returned once at
// creation and only its hash is stored.
type APIToken struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// AuthContext holds the authenticated caller. It carries identity only;
// roles and account scope are resolved per request by the authorization
// engine, never cached here.
type AuthContext struct {
	User  *User
	Token *APIToken
}

var (
	// ErrInvalidToken is returned for malformed, unknown, revoked, or
	// expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInactiveUser is returned when the token's user is deactivated.
	ErrInactiveUser = errors.New("user account is inactive")
)
