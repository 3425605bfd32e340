package models

import (
	"time"
)

// StoryView records that a viewer has observed a story. At most one row
// exists per (story, viewer) pair; inserts go through
// INSERT ... ON CONFLICT DO NOTHING so recording is idempotent.
//
// StoryID is a weak reference: a view may outlive its story's deletion.
// Stale rows are simply ignored by readers, so no cascading delete is
// declared here.
type StoryView struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	StoryID  uint      `gorm:"not null;uniqueIndex:idx_story_viewer" json:"story_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_story_viewer;index" json:"user_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

// StoryViewer is a read model pairing a view record with the viewing account,
// returned to a story's creator when listing who has seen a story.
type StoryViewer struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	ImageURL string    `json:"image_url"`
	ViewedAt time.Time `json:"viewed_at"`
}
