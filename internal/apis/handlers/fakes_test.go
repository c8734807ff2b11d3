package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/scenario"
	"tutor-ai/internal/services"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withUser stands in for the identity middleware
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

type fakeChatService struct {
	services.ChatSessionService

	mu        sync.Mutex
	created   []dtos.CreateChatSessionRequest
	sent      []dtos.SendMessageRequest
	cancelled []string
	sendErr   error
	sendCode  uint32
}

// Get reports every session except "missing" as owned by u-1
func (f *fakeChatService) Get(ctx context.Context, id string) (*dtos.ChatSessionResponse, uint32, error) {
	if id == "missing" {
		return nil, http.StatusNotFound, errors.New("chat session not found")
	}
	return &dtos.ChatSessionResponse{ID: id, UserID: "u-1"}, http.StatusOK, nil
}

func (f *fakeChatService) Create(ctx context.Context, req *dtos.CreateChatSessionRequest) (*dtos.ChatSessionResponse, uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *req)
	return &dtos.ChatSessionResponse{ID: "s-1", UserID: req.UserID, Title: req.Title}, http.StatusCreated, nil
}

func (f *fakeChatService) SendMessage(ctx context.Context, sessionID string, req *dtos.SendMessageRequest) (*dtos.SendMessageResponse, uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendCode, f.sendErr
	}
	f.sent = append(f.sent, *req)
	return &dtos.SendMessageResponse{MessageID: "m-1", StreamID: req.StreamID}, http.StatusAccepted, nil
}

func (f *fakeChatService) CancelProcessing(userID, sessionID, streamID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, streamKey(userID, sessionID, streamID))
}

type fakeScenarioService struct {
	services.ScenarioService

	calls []string
	err   error
	code  uint32
}

func (f *fakeScenarioService) state(op, conversationID, userID string) (*scenario.State, uint32, error) {
	f.calls = append(f.calls, op+":"+conversationID+":"+userID)
	if f.err != nil {
		return nil, f.code, f.err
	}
	return &scenario.State{ConversationID: conversationID, Active: true}, http.StatusOK, nil
}

func (f *fakeScenarioService) Advance(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error) {
	return f.state("advance", conversationID, userID)
}

func (f *fakeScenarioService) Exit(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error) {
	return f.state("exit", conversationID, userID)
}

func (f *fakeScenarioService) Trigger(ctx context.Context, conversationID string, req *dtos.TriggerActionRequest) (*scenario.State, uint32, error) {
	return f.state("trigger", conversationID, req.UserID)
}

func (f *fakeScenarioService) Reset(ctx context.Context, conversationID, userID string) (uint32, error) {
	f.calls = append(f.calls, "reset:"+conversationID+":"+userID)
	return http.StatusNoContent, nil
}
