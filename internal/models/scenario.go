package models

type ScenarioAction struct {
	Label  string `json:"label" yaml:"label"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

type ScenarioStep struct {
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description" yaml:"description"`
	Actions     []ScenarioAction `json:"actions" yaml:"actions"`
}

// ScenarioData is a guided workflow the learner walks through step by step
type ScenarioData struct {
	ID          string         `json:"id" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description" yaml:"description"`
	Steps       []ScenarioStep `json:"steps" yaml:"steps"`
}

// Scenario is a saved scenario template owned by a user
type Scenario struct {
	UserID      string               `gorm:"type:varchar(128);index;not null" json:"user_id"`
	Title       string               `gorm:"type:varchar(512);not null" json:"title"`
	Description string               `gorm:"type:text" json:"description"`
	Steps       JSON[[]ScenarioStep] `json:"steps"`
	Base
}

func (s *Scenario) Data() ScenarioData {
	return ScenarioData{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Steps:       s.Steps.Data,
	}
}
