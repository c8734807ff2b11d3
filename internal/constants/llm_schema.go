package constants

import "github.com/google/generative-ai-go/genai"

// GeminiScenarioResponseSchema mirrors OpenAIScenarioResponseSchema for Gemini
var GeminiScenarioResponseSchema = &genai.Schema{
	Type:     genai.TypeObject,
	Required: []string{"title", "description", "steps"},
	Properties: map[string]*genai.Schema{
		"title":       {Type: genai.TypeString},
		"description": {Type: genai.TypeString},
		"steps": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type:     genai.TypeObject,
				Required: []string{"title", "description", "actions"},
				Properties: map[string]*genai.Schema{
					"title":       {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"actions": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type:     genai.TypeObject,
							Required: []string{"label", "prompt"},
							Properties: map[string]*genai.Schema{
								"label":  {Type: genai.TypeString},
								"prompt": {Type: genai.TypeString},
							},
						},
					},
				},
			},
		},
	},
}
