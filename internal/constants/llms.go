package constants

const (
	OpenAI = "openai"
	Gemini = "gemini"
)

const (
	OpenAIModel               = "gpt-4o"
	OpenAITemperature         = 0.7
	OpenAIMaxCompletionTokens = 4096

	GeminiModel               = "gemini-1.5-pro"
	GeminiTemperature         = 0.7
	GeminiMaxCompletionTokens = 4096
)

// ScenarioSystemPrompt instructs the model to produce a guided learning scenario
const ScenarioSystemPrompt = `You are a tutoring workflow designer. Given a learner's goal, produce a guided scenario.
Rules:
1. Return between 3 and 8 steps, ordered from first to last.
2. Every step has a short title, a one or two sentence description and 1 to 4 actions.
3. Every action has a button label and the exact prompt the learner will send to the tutor agents.
4. Prompts must be self-contained: they are sent to the chat without further editing.
5. Respond with JSON only, matching the provided schema.`

// OpenAIScenarioResponseSchema is the JSON schema for generated scenarios
const OpenAIScenarioResponseSchema = `{
  "type": "object",
  "properties": {
    "title": { "type": "string" },
    "description": { "type": "string" },
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": { "type": "string" },
          "description": { "type": "string" },
          "actions": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "label": { "type": "string" },
                "prompt": { "type": "string" }
              },
              "required": ["label", "prompt"],
              "additionalProperties": false
            }
          }
        },
        "required": ["title", "description", "actions"],
        "additionalProperties": false
      }
    }
  },
  "required": ["title", "description", "steps"],
  "additionalProperties": false
}`
