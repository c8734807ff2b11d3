package dispatch

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/transcript"

	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var knownToolsYAML []byte

// ToolSpec describes one tool the agent backend may complete
type ToolSpec struct {
	Name        string `yaml:"name"`
	Effect      string `yaml:"effect"`
	Description string `yaml:"description"`
}

// KnownTools returns the tool set shipped with the binary
func KnownTools() ([]ToolSpec, error) {
	var doc struct {
		Tools []ToolSpec `yaml:"tools"`
	}
	if err := yaml.Unmarshal(knownToolsYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse known tools: %w", err)
	}
	return doc.Tools, nil
}

// Handler applies one completed tool invocation to the workspace.
// A nil effect means the precondition did not hold and nothing changed.
type Handler func(ws *Workspace, inv transcript.ToolInvocation, now time.Time) (*Effect, error)

type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// DefaultRegistry wires every workspace tool to its handler
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(constants.ToolCreateFlashCard, createFlashCard)
	r.Register(constants.ToolEditFlashCard, editFlashCard)
	r.Register(constants.ToolDeleteFlashCard, deleteFlashCard)
	r.Register(constants.ToolEditSlide, editSlide)
	r.Register(constants.ToolEditParagraph, editParagraph)
	r.Register(constants.ToolEditCV, editCV)
	return r
}

func (r *Registry) Register(toolName string, h Handler) {
	r.handlers[toolName] = h
}

func (r *Registry) Lookup(toolName string) (Handler, bool) {
	h, ok := r.handlers[toolName]
	return h, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that the registry and the known tool set name exactly the same tools
func (r *Registry) Validate(known []ToolSpec) error {
	var missing, unknown []string
	seen := make(map[string]bool, len(known))
	for _, spec := range known {
		seen[spec.Name] = true
		if _, ok := r.handlers[spec.Name]; !ok {
			missing = append(missing, spec.Name)
		}
	}
	for name := range r.handlers {
		if !seen[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	if len(missing) > 0 || len(unknown) > 0 {
		return fmt.Errorf("tool registry mismatch: missing handlers [%s], unknown handlers [%s]",
			strings.Join(missing, ", "), strings.Join(unknown, ", "))
	}
	return nil
}
