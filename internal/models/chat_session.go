package models

type ChatSession struct {
	UserID        string  `gorm:"type:varchar(128);index;not null" json:"user_id"`
	Title         string  `gorm:"type:varchar(512)" json:"title"`
	AgentName     string  `gorm:"type:varchar(255)" json:"agent_name"`
	VectorStoreID *string `gorm:"type:varchar(255)" json:"vector_store_id,omitempty"`
	IsPublic      bool    `gorm:"index" json:"is_public"`
	Base
}

func NewChatSession(userID, title, agentName string) *ChatSession {
	return &ChatSession{
		UserID:    userID,
		Title:     title,
		AgentName: agentName,
		Base:      NewBase(),
	}
}
