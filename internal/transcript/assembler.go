package transcript

import (
	"encoding/json"
	"fmt"
	"time"
	"tutor-ai/internal/models"

	"github.com/google/uuid"
)

// Assemble converts display messages into the streaming client's shape.
// Messages without an id get a synthesized one that is never persisted.
func Assemble(messages []DisplayMessage) Transcript {
	out := Transcript{
		Messages: make([]StreamMessage, 0, len(messages)),
		AgentMap: make(map[string]string),
	}

	for _, msg := range messages {
		id := msg.ID
		if id == "" {
			id = SynthesizeID(msg.Timestamp)
		}

		sm := StreamMessage{
			ID:         id,
			Role:       msg.Role,
			Content:    msg.Content,
			CreatedAt:  msg.Timestamp,
			ToolAction: msg.ToolAction,
		}
		// The multi-invocation format supersedes the legacy single call.
		if len(msg.ToolInvocations) > 0 {
			sm.ToolInvocations = msg.ToolInvocations
		} else {
			sm.ToolCall = legacyToolCall(msg.Metadata)
		}
		out.Messages = append(out.Messages, sm)

		if msg.AgentName != "" {
			out.AgentMap[id] = msg.AgentName
		}
	}
	return out
}

// Build runs the full reconciliation pipeline over a raw message log
func Build(messages []models.ChatMessage) Transcript {
	return Assemble(Deduplicate(Normalize(messages)))
}

// SynthesizeID returns an id of the form msg-<unix-ms>-<random>
func SynthesizeID(at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("msg-%d-%s", at.UnixMilli(), uuid.NewString()[:8])
}

func legacyToolCall(metadata map[string]interface{}) *ToolCall {
	raw, ok := metadata["toolCall"]
	if !ok {
		raw, ok = metadata["tool_call"]
	}
	if !ok || raw == nil {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var call ToolCall
	if err := json.Unmarshal(b, &call); err != nil || call.Name == "" {
		return nil
	}
	return &call
}
