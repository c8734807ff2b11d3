package llm

import (
	"context"
	"tutor-ai/internal/models"
)

// ScenarioRequest describes the scenario a learner asked for
type ScenarioRequest struct {
	Goal     string `json:"goal"`
	Level    string `json:"level,omitempty"`
	Language string `json:"language,omitempty"`
	MaxSteps int    `json:"max_steps,omitempty"`
}

// Client defines the interface for LLM interactions
type Client interface {
	GenerateScenario(ctx context.Context, req ScenarioRequest) (*models.ScenarioData, error)
	GetModelInfo() ModelInfo
}

// ModelInfo contains information about the LLM model
type ModelInfo struct {
	Name                string
	Provider            string
	MaxCompletionTokens int
	ContextLimit        int
}

// Config holds configuration for LLM clients
type Config struct {
	Provider            string
	Model               string
	APIKey              string
	BaseURL             string
	MaxCompletionTokens int
	Temperature         float64
	SystemPrompt        string
	// Schema is a JSON schema string for OpenAI and a *genai.Schema for Gemini
	Schema interface{}
}
