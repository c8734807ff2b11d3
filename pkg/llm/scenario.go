package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"tutor-ai/internal/models"
)

const (
	MaxScenarioSteps   = 12
	MaxActionsPerStep  = 6
	defaultMaxSteps    = 6
	scenarioGoalMaxLen = 2000
)

var ErrInvalidScenario = errors.New("invalid scenario")

// BuildScenarioPrompt renders the user turn sent to the model
func BuildScenarioPrompt(req ScenarioRequest) string {
	maxSteps := req.MaxSteps
	if maxSteps <= 0 || maxSteps > MaxScenarioSteps {
		maxSteps = defaultMaxSteps
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Learner goal: %s\n", strings.TrimSpace(req.Goal))
	if req.Level != "" {
		fmt.Fprintf(&b, "Learner level: %s\n", req.Level)
	}
	if req.Language != "" {
		fmt.Fprintf(&b, "Write titles, descriptions and prompts in: %s\n", req.Language)
	}
	fmt.Fprintf(&b, "Use at most %d steps.", maxSteps)
	return b.String()
}

// ValidateRequest rejects requests the model should never see
func ValidateRequest(req ScenarioRequest) error {
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		return fmt.Errorf("%w: goal is required", ErrInvalidScenario)
	}
	if len(goal) > scenarioGoalMaxLen {
		return fmt.Errorf("%w: goal exceeds %d characters", ErrInvalidScenario, scenarioGoalMaxLen)
	}
	return nil
}

// ParseScenario decodes and validates a model response. Markdown code fences are tolerated.
func ParseScenario(text string) (*models.ScenarioData, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var scenario models.ScenarioData
	if err := json.Unmarshal([]byte(cleaned), &scenario); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %v", ErrInvalidScenario, err)
	}
	if err := ValidateScenario(&scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// ValidateScenario checks the structural rules every scenario must satisfy and trims whitespace
func ValidateScenario(s *models.ScenarioData) error {
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	if s.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidScenario)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidScenario)
	}
	if len(s.Steps) > MaxScenarioSteps {
		return fmt.Errorf("%w: at most %d steps are allowed", ErrInvalidScenario, MaxScenarioSteps)
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		step.Title = strings.TrimSpace(step.Title)
		if step.Title == "" {
			return fmt.Errorf("%w: step %d has no title", ErrInvalidScenario, i+1)
		}
		if len(step.Actions) == 0 || len(step.Actions) > MaxActionsPerStep {
			return fmt.Errorf("%w: step %d must have between 1 and %d actions", ErrInvalidScenario, i+1, MaxActionsPerStep)
		}
		for j := range step.Actions {
			action := &step.Actions[j]
			action.Label = strings.TrimSpace(action.Label)
			action.Prompt = strings.TrimSpace(action.Prompt)
			if action.Label == "" || action.Prompt == "" {
				return fmt.Errorf("%w: step %d action %d needs a label and a prompt", ErrInvalidScenario, i+1, j+1)
			}
		}
	}
	return nil
}
