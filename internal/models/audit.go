package models

import "time"

type AuditAction string

const (
	AuditLogin       AuditAction = "login"
	AuditLoginFailed AuditAction = "login_failed"
	AuditLogout      AuditAction = "logout"
	AuditRevoked     AuditAction = "session_revoked"
	AuditExpired     AuditAction = "session_expired"
)

// AuditRecord is published for every session state transition.
type AuditRecord struct {
	ID        string      `json:"id"`
	Action    AuditAction `json:"action"`
	Username  string      `json:"username,omitempty"`
	Role      Role        `json:"role,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	At        time.Time   `json:"at"`
}
