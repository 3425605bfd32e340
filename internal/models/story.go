// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// StoryTTL is the fixed lifetime of a story. ExpiresAt is always derived as
// CreatedAt + StoryTTL at creation time; stories are never extended.
const StoryTTL = 24 * time.Hour

// Story represents an ephemeral media post. Stories are immutable once
// created: they are deleted either explicitly by their creator or by the
// expiry sweep, never updated. Deletion is a hard delete — an expired story
// must actually disappear, so there is no soft-delete column here.
type Story struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user"`
	// ImageID is the object key of the stored media in the blob store.
	ImageID  string `gorm:"not null" json:"image_id"`
	ImageURL string `gorm:"not null" json:"image_url"`
	// ContentType of the stored media (image/jpeg after normalization).
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
	// ViewsCount is not persisted; computed at query time.
	ViewsCount int `gorm:"->" json:"views_count"`
	// Seen indicates whether the requesting viewer has seen this story
	// (computed per request, never stored).
	Seen bool `gorm:"-" json:"seen"`
}
