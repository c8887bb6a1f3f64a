package dto

import "time"

// UpsertAnnouncementRequest is the admin payload for creating or editing an announcement.
type UpsertAnnouncementRequest struct {
	Title      string     `json:"title" validate:"required,max=200"`
	Content    string     `json:"content" validate:"required"`
	Visibility string     `json:"visibility" validate:"omitempty,visibility"`
	Priority   string     `json:"priority" validate:"omitempty,annpriority"`
	IsActive   *bool      `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at"`
}
