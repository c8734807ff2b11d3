// Package transcript rebuilds a displayable chat transcript from the raw
// message log persisted by the agent backend. Tool call/result records and
// citation annotations carry no link to the assistant reply they belong to,
// so they are attributed by timestamp windows.
package transcript

import (
	"time"
)

type InvocationState string

const (
	StateCall   InvocationState = "call"
	StateResult InvocationState = "result"
)

// ToolInvocation is one tool call, optionally completed with its result
type ToolInvocation struct {
	ToolName   string                 `json:"toolName"`
	ToolCallID string                 `json:"toolCallId,omitempty"`
	Args       map[string]interface{} `json:"args"`
	Result     interface{}            `json:"result,omitempty"`
	State      InvocationState        `json:"state"`
}

// Annotation is the citation payload attached to an assistant reply
type Annotation struct {
	Content    string `json:"content"`
	ToolName   string `json:"toolName"`
	ToolAction string `json:"toolAction"`
}

// DisplayMessage is a message as the UI renders it
type DisplayMessage struct {
	ID              string                 `json:"id"`
	Role            string                 `json:"role"`
	Content         string                 `json:"content"`
	Timestamp       time.Time              `json:"timestamp"`
	AgentName       string                 `json:"agentName,omitempty"`
	ToolAction      string                 `json:"toolAction,omitempty"`
	ToolInvocations []ToolInvocation       `json:"toolInvocations,omitempty"`
	Annotations     *Annotation            `json:"annotations,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// ToolCall is the legacy single-call shape some older messages carry in metadata
type ToolCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// StreamMessage is the shape the streaming chat client consumes
type StreamMessage struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	CreatedAt       time.Time        `json:"createdAt"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
	ToolCall        *ToolCall        `json:"toolCall,omitempty"`
	ToolAction      string           `json:"toolAction,omitempty"`
}

// Transcript is the assembled conversation plus the message id to agent name map
type Transcript struct {
	Messages []StreamMessage   `json:"messages"`
	AgentMap map[string]string `json:"agentMap"`
}
