package dto

import "time"

type SendDirectRequest struct {
	To            string  `json:"to"`
	Body          string  `json:"body"`
	AttachmentRef *string `json:"attachmentRef,omitempty"`
}

type SendGroupRequest struct {
	GroupID       string  `json:"groupId"`
	Body          string  `json:"body"`
	AttachmentRef *string `json:"attachmentRef,omitempty"`
}

type MessageView struct {
	ID            string    `json:"id"`
	From          string    `json:"from"`
	To            string    `json:"to,omitempty"`
	GroupID       string    `json:"groupId,omitempty"`
	Body          string    `json:"body,omitempty"`
	AttachmentRef *string   `json:"attachmentRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
