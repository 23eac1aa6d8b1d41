package domain

import "time"

type ViolationType string

const (
	ViolationScreenshot         ViolationType = "screenshot_attempt"
	ViolationCopy               ViolationType = "copy_attempt"
	ViolationForward            ViolationType = "forward_attempt"
	ViolationUnauthorizedAccess ViolationType = "unauthorized_access"
	ViolationMultipleLogin      ViolationType = "multiple_login_attempt"
)

var violationTypes = map[ViolationType]struct{}{
	ViolationScreenshot:         {},
	ViolationCopy:               {},
	ViolationForward:            {},
	ViolationUnauthorizedAccess: {},
	ViolationMultipleLogin:      {},
}

func (t ViolationType) Valid() bool {
	_, ok := violationTypes[t]
	return ok
}

// ViolationEvent is append-only; rows are never mutated or removed by normal
// flow so the log stays usable for audit after an unblock.
type ViolationEvent struct {
	ID         uint          `gorm:"primaryKey" db:"id"`
	UserID     UserID        `gorm:"type:uuid;not null;index" db:"user_id"`
	Type       ViolationType `gorm:"type:text;not null" db:"type"`
	DeviceInfo []byte        `gorm:"type:jsonb" db:"device_info"`
	CreatedAt  time.Time     `gorm:"not null" db:"created_at"`
}

func (ViolationEvent) TableName() string { return "violation_events" }
