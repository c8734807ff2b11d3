package models

import "time"

type CVDocument struct {
	SessionID string                       `gorm:"primaryKey;type:varchar(64)" json:"session_id"`
	Content   JSON[map[string]interface{}] `json:"content"`
	UpdatedAt time.Time                    `json:"updated_at"`
}
