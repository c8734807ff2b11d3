package scenario

import (
	_ "embed"
	"fmt"
	"sync"
	"tutor-ai/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var (
	catalogOnce sync.Once
	catalog     []models.ScenarioData
	catalogErr  error
)

// Catalog returns the built-in scenarios
func Catalog() ([]models.ScenarioData, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = ParseCatalog(catalogYAML)
	})
	if catalogErr != nil {
		return nil, catalogErr
	}
	out := make([]models.ScenarioData, len(catalog))
	copy(out, catalog)
	return out, nil
}

// ParseCatalog decodes a YAML list of scenarios. Every scenario needs an id and at least one step.
func ParseCatalog(data []byte) ([]models.ScenarioData, error) {
	var scenarios []models.ScenarioData
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenario catalog: %w", err)
	}
	seen := make(map[string]bool, len(scenarios))
	for i, s := range scenarios {
		if s.ID == "" {
			return nil, fmt.Errorf("scenario #%d has no id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario id %q", s.ID)
		}
		seen[s.ID] = true
		if len(s.Steps) == 0 {
			return nil, fmt.Errorf("scenario %q: %w", s.ID, ErrEmptyScenario)
		}
	}
	return scenarios, nil
}

// FindInCatalog looks a built-in scenario up by id
func FindInCatalog(id string) (*models.ScenarioData, bool) {
	scenarios, err := Catalog()
	if err != nil {
		return nil, false
	}
	for i := range scenarios {
		if scenarios[i].ID == id {
			return &scenarios[i], true
		}
	}
	return nil, false
}
