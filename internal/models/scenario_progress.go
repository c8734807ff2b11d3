package models

import "time"

// ScenarioProgress is the persisted position of a conversation inside a scenario
type ScenarioProgress struct {
	ConversationID   string                `gorm:"primaryKey;type:varchar(64)" json:"conversation_id"`
	UserID           string                `gorm:"type:varchar(128);index" json:"user_id"`
	Scenario         JSON[ScenarioData]    `json:"scenario"`
	CurrentStep      int                   `json:"current_step"`
	CompletedSteps   JSON[[]int]           `json:"completed_steps"`
	TriggeredActions JSON[map[string]bool] `json:"triggered_actions"`
	Exited           bool                  `gorm:"not null;default:false" json:"exited"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func (ScenarioProgress) TableName() string {
	return "scenario_progress"
}
