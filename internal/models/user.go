package models

import (
	"time"
)

// User is the account record referenced by stories and views. Account
// creation, credentials and session issuance live in the external identity
// service; this service only needs the profile fields it renders alongside
// stories, plus the admin flag consulted by the sweep endpoint.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	ImageURL  string    `json:"image_url"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
