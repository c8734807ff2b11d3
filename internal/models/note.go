package models

import "time"

// Note holds all paragraphs of one session joined by the paragraph separator
type Note struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID    string    `gorm:"type:varchar(128);uniqueIndex:idx_note_owner;not null" json:"user_id"`
	SessionID string    `gorm:"type:varchar(64);uniqueIndex:idx_note_owner;not null" json:"session_id"`
	Content   string    `gorm:"type:text" json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
