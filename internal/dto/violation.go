package dto

import "time"

type ViolationReportRequest struct {
	Type       string         `json:"type"`
	DeviceInfo map[string]any `json:"deviceInfo,omitempty"`
}

type ViolationView struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

type BlockRequest struct {
	Reason string `json:"reason"`
}
