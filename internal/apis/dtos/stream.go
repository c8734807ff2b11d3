package dtos

type StreamResponse struct {
	Event string      `json:"event"` // connected, heartbeat, assistant-delta, tool-invocation, note-paragraph, flashcard, slide, cv, response-error, response-done, scenario-updated
	Data  interface{} `json:"data,omitempty"`
}
