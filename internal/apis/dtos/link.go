package dtos

type LinkPreviewResponse struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
}

// LaunchParams are the deep-link parameters a client was opened with
type LaunchParams struct {
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Agent          string `json:"agent,omitempty"`
	Message        string `json:"message,omitempty"`
	Scenario       string `json:"scenario,omitempty"`
	Recovered      bool   `json:"recovered"`
}
