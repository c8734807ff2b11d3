package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/models"
	"tutor-ai/internal/repositories"
	"tutor-ai/internal/transcript"

	"go.uber.org/zap"
)

// replyLog collects one streamed agent reply and writes it to the session's message log.
// Tool records are stored as they arrive; assistant text is stored once the reply ends.
// Stream callbacks are sequential, so it is not safe for concurrent use.
type replyLog struct {
	sessionID string
	now       func() time.Time

	order   []string
	pending map[string]*models.ChatMessage // key: backend message id
}

func newReplyLog(sessionID string, now func() time.Time) *replyLog {
	return &replyLog{
		sessionID: sessionID,
		now:       now,
		pending:   make(map[string]*models.ChatMessage),
	}
}

func (r *replyLog) appendText(messageID, agentName, content string) {
	msg, ok := r.pending[messageID]
	if !ok {
		msg = models.NewChatMessage(r.sessionID, string(constants.MessageRoleAssistant), "")
		msg.CreatedAt = r.now()
		if messageID != "" {
			msg.Metadata = models.NewJSON(map[string]interface{}{"backend_message_id": messageID})
		}
		r.pending[messageID] = msg
		r.order = append(r.order, messageID)
	}
	if msg.AgentName == nil && agentName != "" {
		name := agentName
		msg.AgentName = &name
	}
	msg.Content += content
}

// recordTool stores a tool call or result as a tool-role envelope
func (r *replyLog) recordTool(ctx context.Context, repo repositories.ChatSessionRepository, agentName string, inv transcript.ToolInvocation) error {
	args := inv.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	envelope := map[string]interface{}{"tool": inv.ToolName, "args": args}
	if inv.ToolCallID != "" {
		envelope["toolCallId"] = inv.ToolCallID
	}
	action := string(constants.ToolActionCall)
	if inv.State == transcript.StateResult {
		envelope["result"] = inv.Result
		action = string(constants.ToolActionOutput)
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode tool envelope: %w", err)
	}

	msg := models.NewChatMessage(r.sessionID, string(constants.MessageRoleTool), string(body))
	msg.CreatedAt = r.now()
	msg.ToolAction = &action
	if agentName != "" {
		msg.AgentName = &agentName
	}
	return repo.CreateMessage(ctx, msg)
}

// flush stores the assistant text gathered so far. It is safe to call more than once.
func (r *replyLog) flush(ctx context.Context, repo repositories.ChatSessionRepository, log *zap.Logger) {
	for _, id := range r.order {
		msg := r.pending[id]
		delete(r.pending, id)
		if msg == nil || msg.Content == "" {
			continue
		}
		if err := repo.CreateMessage(ctx, msg); err != nil {
			log.Error("failed to store assistant reply", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	r.order = r.order[:0]
}
