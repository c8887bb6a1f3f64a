package models

import "time"

// AnnouncementVisibility defines who can see an announcement.
type AnnouncementVisibility string

const (
	VisibilityAll        AnnouncementVisibility = "all"
	VisibilityMembers    AnnouncementVisibility = "members"
	VisibilityNonMembers AnnouncementVisibility = "non_members"
)

// AnnouncementPriority defines ordering for announcements.
type AnnouncementPriority string

const (
	AnnouncementPriorityLow    AnnouncementPriority = "low"
	AnnouncementPriorityNormal AnnouncementPriority = "normal"
	AnnouncementPriorityHigh   AnnouncementPriority = "high"
	AnnouncementPriorityUrgent AnnouncementPriority = "urgent"
)

// Announcement represents a persisted announcement row.
type Announcement struct {
	ID         string                 `db:"id" json:"id"`
	Title      string                 `db:"title" json:"title"`
	Content    string                 `db:"content" json:"content"`
	Visibility AnnouncementVisibility `db:"visibility" json:"visibility"`
	Priority   AnnouncementPriority   `db:"priority" json:"priority"`
	IsActive   bool                   `db:"is_active" json:"is_active"`
	CreatedBy  int64                  `db:"created_by" json:"created_by"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time              `db:"updated_at" json:"updated_at"`
	ExpiresAt  *time.Time             `db:"expires_at" json:"expires_at,omitempty"`
}

// VisibleTo reports whether a guest or member may see the announcement at now.
func (a Announcement) VisibleTo(authenticated bool, now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	switch a.Visibility {
	case VisibilityAll:
		return true
	case VisibilityMembers:
		return authenticated
	case VisibilityNonMembers:
		return !authenticated
	}
	return false
}
