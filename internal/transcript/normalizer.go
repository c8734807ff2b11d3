package transcript

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/models"
	"tutor-ai/pkg/logger"

	"go.uber.org/zap"
)

const (
	// AnnotationWindow bounds how long after an assistant reply its citations may be logged
	AnnotationWindow = 30 * time.Second
	// TrailingToolWindow bounds tool attribution after the last assistant reply of a turn
	TrailingToolWindow = 10 * time.Minute
)

var errEmptyToolName = errors.New("tool envelope has no tool name")

type timedInvocation struct {
	at         time.Time
	invocation ToolInvocation
	claimed    bool
}

type timedAnnotation struct {
	at         time.Time
	annotation Annotation
}

// toolEnvelope is the JSON content of a tool-role message
type toolEnvelope struct {
	Tool       string                 `json:"tool"`
	ToolName   string                 `json:"toolName"`
	ToolCallID string                 `json:"toolCallId"`
	CallID     string                 `json:"tool_call_id"`
	Args       map[string]interface{} `json:"args"`
	Result     json.RawMessage        `json:"result"`
}

// Normalize turns the raw persisted log of one conversation into display messages.
// Tool records are folded into the assistant reply they were executed for,
// annotations are attached to the reply they follow, and agent-switch notices are dropped.
func Normalize(messages []models.ChatMessage) []DisplayMessage {
	log := logger.Named("transcript")

	annotations := make(map[int64]timedAnnotation)
	var toolMessages []*timedInvocation
	regular := make([]models.ChatMessage, 0, len(messages))

	for _, msg := range messages {
		switch {
		case msg.Role == string(constants.MessageRoleTool) && toolAction(msg) == string(constants.ToolActionAnnotations):
			annotations[msg.CreatedAt.UnixMilli()] = timedAnnotation{
				at:         msg.CreatedAt,
				annotation: annotationFrom(msg),
			}
		case msg.Role == string(constants.MessageRoleTool):
			invocation, err := ParseToolInvocation(msg.Content)
			if err != nil {
				log.Warn("skipping unparsable tool message",
					zap.String("message_id", msg.ID),
					zap.String("session_id", msg.SessionID),
					zap.Error(err))
				continue
			}
			toolMessages = append(toolMessages, &timedInvocation{at: msg.CreatedAt, invocation: invocation})
		case IsAgentSwitch(msg):
			continue
		default:
			regular = append(regular, msg)
		}
	}

	sortedAnnotations := make([]timedAnnotation, 0, len(annotations))
	for _, a := range annotations {
		sortedAnnotations = append(sortedAnnotations, a)
	}
	sort.Slice(sortedAnnotations, func(i, j int) bool {
		return sortedAnnotations[i].at.Before(sortedAnnotations[j].at)
	})
	sort.SliceStable(toolMessages, func(i, j int) bool {
		return toolMessages[i].at.Before(toolMessages[j].at)
	})

	display := make([]DisplayMessage, len(regular))
	for i, msg := range regular {
		display[i] = toDisplay(msg)
	}

	// Tools logged before a reply belong to it first; leftovers go to the reply they trail.
	gathered := make([][]*timedInvocation, len(regular))
	hasMetadataTools := make([]bool, len(regular))
	for i := range regular {
		if regular[i].Role != string(constants.MessageRoleAssistant) {
			continue
		}
		hasMetadataTools[i] = len(display[i].ToolInvocations) > 0
		if hasMetadataTools[i] {
			continue
		}
		lo := precedingUserTime(regular, i)
		at := regular[i].CreatedAt
		for _, tm := range toolMessages {
			if !tm.claimed && tm.at.After(lo) && !tm.at.After(at) {
				tm.claimed = true
				gathered[i] = append(gathered[i], tm)
			}
		}
	}
	for i := range regular {
		if regular[i].Role != string(constants.MessageRoleAssistant) || hasMetadataTools[i] {
			continue
		}
		at := regular[i].CreatedAt
		hi := followingAssistantTime(regular, i)
		for _, tm := range toolMessages {
			if !tm.claimed && tm.at.After(at) && tm.at.Before(hi) {
				tm.claimed = true
				gathered[i] = append(gathered[i], tm)
			}
		}
	}

	for i := range display {
		if regular[i].Role != string(constants.MessageRoleAssistant) {
			continue
		}
		if ann, ok := closestFollowingAnnotation(sortedAnnotations, regular[i].CreatedAt); ok {
			a := ann
			display[i].Annotations = &a
		}
		if len(gathered[i]) > 0 {
			sort.SliceStable(gathered[i], func(a, b int) bool {
				return gathered[i][a].at.Before(gathered[i][b].at)
			})
			display[i].ToolInvocations = mergeInvocations(gathered[i])
		}
	}

	return display
}

// ParseToolInvocation decodes a tool-role message body. The invocation is in
// the result state exactly when the envelope carries a result key.
func ParseToolInvocation(content string) (ToolInvocation, error) {
	var env toolEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return ToolInvocation{}, err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &keys); err != nil {
		return ToolInvocation{}, err
	}

	name := env.Tool
	if name == "" {
		name = env.ToolName
	}
	if name == "" {
		return ToolInvocation{}, errEmptyToolName
	}

	callID := env.ToolCallID
	if callID == "" {
		callID = env.CallID
	}

	args := env.Args
	if args == nil {
		args = map[string]interface{}{}
	}

	invocation := ToolInvocation{
		ToolName:   name,
		ToolCallID: callID,
		Args:       args,
		State:      StateCall,
	}
	if _, ok := keys["result"]; ok {
		invocation.State = StateResult
		var result interface{}
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return ToolInvocation{}, err
		}
		invocation.Result = result
	}
	return invocation, nil
}

// IsAgentSwitch reports whether a message is a notice about the conversation moving to another agent
func IsAgentSwitch(msg models.ChatMessage) bool {
	if eventType, ok := msg.Metadata.Data["event_type"].(string); ok && eventType == "agent_switch" {
		return true
	}
	if msg.Role != string(constants.MessageRoleSystem) {
		return false
	}
	return strings.HasPrefix(msg.Content, "Switching to") ||
		msg.Content == "Triage Agent" ||
		strings.Contains(msg.Content, "Deep Seek")
}

// StripFilesMetadata hides the injected file-context payload of a user message
func StripFilesMetadata(content string) string {
	if idx := strings.Index(content, constants.FilesMetadataSentinel); idx >= 0 {
		return content[:idx]
	}
	return content
}

func toDisplay(msg models.ChatMessage) DisplayMessage {
	content := msg.Content
	if msg.Role == string(constants.MessageRoleUser) {
		content = StripFilesMetadata(content)
	}

	d := DisplayMessage{
		ID:         msg.ID,
		Role:       msg.Role,
		Content:    content,
		Timestamp:  msg.CreatedAt,
		ToolAction: toolAction(msg),
		Metadata:   msg.Metadata.Data,
	}
	if msg.AgentName != nil {
		d.AgentName = *msg.AgentName
	}
	if msg.Role == string(constants.MessageRoleAssistant) {
		d.ToolInvocations = metadataInvocations(msg.Metadata.Data)
	}
	return d
}

func toolAction(msg models.ChatMessage) string {
	if msg.ToolAction == nil {
		return ""
	}
	return *msg.ToolAction
}

func annotationFrom(msg models.ChatMessage) Annotation {
	toolName, _ := msg.Metadata.Data["tool_name"].(string)
	if toolName == "" {
		var env struct {
			Tool string `json:"tool"`
		}
		if json.Unmarshal([]byte(msg.Content), &env) == nil {
			toolName = env.Tool
		}
	}
	return Annotation{
		Content:    msg.Content,
		ToolName:   toolName,
		ToolAction: string(constants.ToolActionAnnotations),
	}
}

// metadataInvocations reads invocations the backend already attached to the message
func metadataInvocations(metadata map[string]interface{}) []ToolInvocation {
	raw, ok := metadata["toolInvocations"]
	if !ok {
		raw, ok = metadata["tool_invocations"]
	}
	if !ok || raw == nil {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var invocations []ToolInvocation
	if err := json.Unmarshal(b, &invocations); err != nil {
		logger.Named("transcript").Warn("ignoring malformed metadata tool invocations", zap.Error(err))
		return nil
	}
	return invocations
}

func precedingUserTime(regular []models.ChatMessage, idx int) time.Time {
	for i := idx - 1; i >= 0; i-- {
		if regular[i].Role == string(constants.MessageRoleUser) {
			return regular[i].CreatedAt
		}
	}
	return time.Time{}
}

func followingAssistantTime(regular []models.ChatMessage, idx int) time.Time {
	for i := idx + 1; i < len(regular); i++ {
		if regular[i].Role == string(constants.MessageRoleAssistant) {
			return regular[i].CreatedAt
		}
	}
	return regular[idx].CreatedAt.Add(TrailingToolWindow)
}

func closestFollowingAnnotation(sorted []timedAnnotation, at time.Time) (Annotation, bool) {
	for _, a := range sorted {
		delta := a.at.Sub(at)
		if delta < 0 {
			continue
		}
		if delta > AnnotationWindow {
			break
		}
		return a.annotation, true
	}
	return Annotation{}, false
}

// mergeInvocations folds a result into the pending call it completes
func mergeInvocations(timed []*timedInvocation) []ToolInvocation {
	out := make([]ToolInvocation, 0, len(timed))
	for _, tm := range timed {
		inv := tm.invocation
		if inv.State == StateResult {
			if idx := pendingCallIndex(out, inv); idx >= 0 {
				if inv.ToolCallID == "" {
					inv.ToolCallID = out[idx].ToolCallID
				}
				if len(inv.Args) == 0 {
					inv.Args = out[idx].Args
				}
				out[idx] = inv
				continue
			}
		}
		out = append(out, inv)
	}
	return out
}

func pendingCallIndex(out []ToolInvocation, result ToolInvocation) int {
	for i, inv := range out {
		if inv.State != StateCall || inv.ToolName != result.ToolName {
			continue
		}
		if inv.ToolCallID != "" && result.ToolCallID != "" && inv.ToolCallID != result.ToolCallID {
			continue
		}
		return i
	}
	return -1
}
