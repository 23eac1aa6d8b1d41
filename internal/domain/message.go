package domain

import "time"

// Message is a direct user-to-user message. Rows are append-only; the only
// later mutation is adding read receipts.
type Message struct {
	ID            MessageID     `gorm:"type:uuid;primaryKey" db:"id"`
	FromUserID    UserID        `gorm:"type:uuid;not null;index:idx_messages_pair,priority:1" db:"from_user_id"`
	ToUserID      UserID        `gorm:"type:uuid;not null;index:idx_messages_pair,priority:2" db:"to_user_id"`
	Body          string        `gorm:"type:text" db:"body"`
	AttachmentRef *string       `gorm:"type:text" db:"attachment_ref"`
	CreatedAt     time.Time     `gorm:"not null;index:idx_messages_pair,priority:3" db:"created_at"`
	ReadReceipts  []ReadReceipt `gorm:"foreignKey:MessageID" db:"-"`
}

func (Message) TableName() string { return "messages" }

// ReadReceipt records that a user has read a direct message.
type ReadReceipt struct {
	MessageID MessageID `gorm:"type:uuid;primaryKey" db:"message_id"`
	UserID    UserID    `gorm:"type:uuid;primaryKey" db:"user_id"`
	ReadAt    time.Time `gorm:"not null" db:"read_at"`
}

func (ReadReceipt) TableName() string { return "read_receipts" }

// GroupMessage is a message fanned out to every member of a group. Group read
// state lives only in the unread counters, not on the row.
type GroupMessage struct {
	ID            MessageID `gorm:"type:uuid;primaryKey" db:"id"`
	GroupID       GroupID   `gorm:"type:uuid;not null;index:idx_group_messages_group,priority:1" db:"group_id"`
	FromUserID    UserID    `gorm:"type:uuid;not null" db:"from_user_id"`
	Body          string    `gorm:"type:text" db:"body"`
	AttachmentRef *string   `gorm:"type:text" db:"attachment_ref"`
	CreatedAt     time.Time `gorm:"not null;index:idx_group_messages_group,priority:2" db:"created_at"`
}

func (GroupMessage) TableName() string { return "group_messages" }

// HasContent reports whether a body or at least one attachment is present.
func HasContent(body string, attachmentRef *string) bool {
	return body != "" || (attachmentRef != nil && *attachmentRef != "")
}
