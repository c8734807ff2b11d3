package dtos

import (
	"tutor-ai/internal/models"
)

type GenerateScenarioRequest struct {
	UserID   string `json:"user_id"`
	Goal     string `json:"goal" binding:"required"`
	Level    string `json:"level"`
	Language string `json:"language"`
	MaxSteps int    `json:"max_steps"`
	Client   string `json:"client"`
}

type SaveScenarioRequest struct {
	UserID   string              `json:"user_id"`
	Scenario models.ScenarioData `json:"scenario"`
}

type ScenarioListResponse struct {
	Catalog []models.ScenarioData `json:"catalog"`
	Saved   []models.ScenarioData `json:"saved"`
}

// SelectScenarioRequest picks a scenario by id or supplies one inline
type SelectScenarioRequest struct {
	UserID     string               `json:"user_id"`
	ScenarioID string               `json:"scenario_id"`
	Scenario   *models.ScenarioData `json:"scenario,omitempty"`
}

type TriggerActionRequest struct {
	UserID      string `json:"user_id"`
	StepIndex   *int   `json:"step_index" binding:"required"`
	ActionIndex *int   `json:"action_index" binding:"required"`
}

type ScenarioProgressRequest struct {
	UserID string `json:"user_id"`
}
