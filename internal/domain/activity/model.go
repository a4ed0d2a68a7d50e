package activity

import "time"

// ActivityType represents the type of journaled event
type ActivityType string

const (
	TypeRequestCreated ActivityType = "request_created"
	TypeStatusChanged  ActivityType = "status_changed"
	TypePhotoAttached  ActivityType = "photo_attached"
	TypeRequestDeleted ActivityType = "request_deleted"
)

// ActivityEntry represents an event in the activity journal
type ActivityEntry struct {
	ID           int64        `json:"id"`
	RecordID     string       `json:"record_id"`
	ActivityType ActivityType `json:"type"`
	Backend      string       `json:"backend"`
	Summary      string       `json:"summary"`
	Details      *string      `json:"details,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
