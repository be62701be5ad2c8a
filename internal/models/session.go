package models

import (
	"errors"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the dashboard role returned by the monitoring API at login.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

var ErrIncompleteSession = errors.New("session is missing token, username or role")

// Session is the authenticated user's credential, display name and role.
// It is written and removed as a whole; see service.SessionService.
type Session struct {
	ID        string    `db:"id"`
	Token     string    `db:"token"`
	Username  string    `db:"username"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// Validate reports a session record with any field of the group missing.
func (s *Session) Validate() error {
	if s.Token == "" || s.Username == "" || s.Role == "" {
		return ErrIncompleteSession
	}
	return nil
}

func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Initial is the avatar letter shown next to the username.
func (s *Session) Initial() string {
	for _, r := range s.Username {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// Claims defines the structure of the session cookie JWT.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
