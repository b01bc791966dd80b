package models

import "time"

// Credential holds login secrets separately from the user's profile record,
// which lives in the document store.
type Credential struct {
	UserID       string    `gorm:"primaryKey;size:128" json:"user_id"`
	Email        string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
