package domain

import "time"

// SessionState names the lifecycle states of a regular user's device session.
// Admins never enter this machine; they may hold any number of sessions.
type SessionState string

const (
	SessionActive     SessionState = "active"
	SessionRevoked    SessionState = "revoked"
	SessionSuperseded SessionState = "superseded_by_new_device"
)

// Session binds a token identity to the device fingerprint it was issued for.
// At most one row per regular user may be in SessionActive at any time.
type Session struct {
	ID                SessionID    `gorm:"type:uuid;primaryKey" db:"id"`
	UserID            UserID       `gorm:"type:uuid;index" db:"user_id"`
	DeviceFingerprint string       `gorm:"type:text;not null" db:"device_fingerprint"`
	TokenID           string       `gorm:"type:text;uniqueIndex:ux_sessions_token_id" db:"token_id"`
	State             SessionState `gorm:"type:text;not null;default:'active'" db:"state"`
	IssuedAt          time.Time    `gorm:"not null" db:"issued_at"`
	ExpiresAt         time.Time    `gorm:"not null" db:"expires_at"`
	EndedAt           *time.Time   `db:"ended_at"`
	IP                string       `gorm:"type:text" db:"ip"`
	UserAgent         string       `gorm:"type:text" db:"user_agent"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) IsActive() bool { return s.State == SessionActive }
