package domain

import "time"

// Group is consumed read-only by this core; membership CRUD belongs to the
// surrounding application.
type Group struct {
	ID        GroupID       `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Name      string        `gorm:"type:text;not null" db:"name" json:"name"`
	IsActive  bool          `gorm:"not null;default:true" db:"is_active" json:"isActive"`
	CreatedAt time.Time     `gorm:"not null" db:"created_at" json:"createdAt"`
	Members   []GroupMember `gorm:"foreignKey:GroupID" json:"-"`
}

func (Group) TableName() string { return "groups" }

type GroupMember struct {
	GroupID  GroupID   `gorm:"type:uuid;primaryKey" db:"group_id"`
	UserID   UserID    `gorm:"type:uuid;primaryKey" db:"user_id"`
	JoinedAt time.Time `gorm:"not null" db:"joined_at"`
}

func (GroupMember) TableName() string { return "group_members" }

func (g *Group) HasMember(id UserID) bool {
	for _, m := range g.Members {
		if m.UserID == id {
			return true
		}
	}
	return false
}

// MemberIDs returns the member set minus the given user, used for fan-out.
func (g *Group) MemberIDs(except UserID) []UserID {
	out := make([]UserID, 0, len(g.Members))
	for _, m := range g.Members {
		if m.UserID != except {
			out = append(out, m.UserID)
		}
	}
	return out
}
