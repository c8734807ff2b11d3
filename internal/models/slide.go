package models

import "time"

// Slide ids are numeric strings; slides are ordered by their numeric value
type Slide struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SessionID string    `gorm:"primaryKey;type:varchar(64)" json:"session_id"`
	Title     string    `gorm:"type:varchar(512)" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  *string   `gorm:"type:text" json:"image_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
