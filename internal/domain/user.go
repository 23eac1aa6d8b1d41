package domain

import "time"

type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID             UserID     `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Username       string     `gorm:"type:citext;uniqueIndex:ux_users_username" db:"username" json:"username"`
	DisplayName    string     `gorm:"type:text" db:"display_name" json:"displayName"`
	Role           Role       `gorm:"type:text;not null;default:'regular'" db:"role" json:"role"`
	IsBlocked      bool       `gorm:"not null;default:false" db:"is_blocked" json:"isBlocked"`
	BlockReason    *string    `gorm:"type:text" db:"block_reason" json:"blockReason,omitempty"`
	BlockedAt      *time.Time `db:"blocked_at" json:"blockedAt,omitempty"`
	ViolationCount int        `gorm:"not null;default:0" db:"violation_count" json:"violationCount"`
	PushToken      *string    `gorm:"type:text" db:"push_token" json:"-"`
	CreatedAt      time.Time  `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"not null" db:"updated_at" json:"updatedAt"`
	DeletedAt      *time.Time `gorm:"index" db:"deleted_at" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Deleted reports whether the user has been soft-deleted. Deleted users stay
// referenced by their messages but are invisible to delivery and sessions.
func (u *User) Deleted() bool { return u.DeletedAt != nil }

// PublicProfile is the denormalized sender/recipient snapshot published to
// the broadcast store alongside each message copy.
type PublicProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:          u.ID.String(),
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}

type PasswordCredential struct {
	UserID      UserID    `gorm:"type:uuid;primaryKey" db:"user_id"`
	Algo        string    `gorm:"type:text;not null" db:"algo"`
	Hash        []byte    `gorm:"type:bytea;not null" db:"hash"`
	Salt        []byte    `gorm:"type:bytea;not null" db:"salt"`
	ParamsJSON  []byte    `gorm:"type:jsonb" db:"params_json"`
	PasswordVer int       `gorm:"not null;default:1" db:"password_ver"`
	CreatedAt   time.Time `gorm:"not null" db:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" db:"updated_at"`
}

func (PasswordCredential) TableName() string { return "password_credentials" }
