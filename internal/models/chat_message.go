package models

import (
	"time"
)

// ChatMessage is a message as persisted by the agent backend
type ChatMessage struct {
	ID         string                       `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SessionID  string                       `gorm:"type:varchar(64);index:idx_session_created;not null" json:"session_id"`
	Role       string                       `gorm:"type:varchar(32);not null" json:"role"` // user, assistant, system, tool
	Content    string                       `gorm:"type:text" json:"content"`
	AgentName  *string                      `gorm:"type:varchar(255)" json:"agent_name,omitempty"`
	ToolAction *string                      `gorm:"type:varchar(32)" json:"tool_action,omitempty"` // call, output, annotations
	Metadata   JSON[map[string]interface{}] `json:"metadata,omitempty"`
	CreatedAt  time.Time                    `gorm:"index:idx_session_created" json:"created_at"`
}

func NewChatMessage(sessionID, role, content string) *ChatMessage {
	base := NewBase()
	return &ChatMessage{
		ID:        base.ID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: base.CreatedAt,
	}
}
