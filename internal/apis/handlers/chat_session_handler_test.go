package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"tutor-ai/internal/apis/dtos"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatRouter(h *ChatSessionHandler, identity string) *gin.Engine {
	router := gin.New()
	router.Use(withUser(identity))
	router.POST("/api/create-chat-session", h.Create)
	router.POST("/api/chat-sessions/:id/messages", h.SendMessage)
	router.GET("/api/chat-sessions/:id/stream", h.StreamChat)
	router.POST("/api/chat-sessions/:id/stream/cancel", h.CancelStream)
	return router
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) dtos.Response {
	t.Helper()
	var body dtos.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestChatSessionHandler_CreatePrefersIdentity(t *testing.T) {
	svc := &fakeChatService{}
	router := newChatRouter(NewChatSessionHandler(svc), "token-user")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/create-chat-session", strings.NewReader(`{"user_id":"body-user","title":"CV"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
	require.Len(t, svc.created, 1)
	assert.Equal(t, "token-user", svc.created[0].UserID)
}

func TestChatSessionHandler_SendMessage(t *testing.T) {
	svc := &fakeChatService{}
	router := newChatRouter(NewChatSessionHandler(svc), "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat-sessions/s-1/messages", strings.NewReader(`{"user_id":"u-1","content":"hi","stream_id":"st"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, svc.sent, 1)
	assert.Equal(t, "u-1", svc.sent[0].UserID)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/chat-sessions/s-1/messages", strings.NewReader(`{"user_id":"u-1"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.sendErr, svc.sendCode = errors.New("daily message limit of 5 reached"), http.StatusTooManyRequests
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/chat-sessions/s-1/messages", strings.NewReader(`{"user_id":"u-1","content":"hi"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeResponse(t, rec)
	require.NotNil(t, body.Error)
	assert.Contains(t, *body.Error, "daily message limit")
}

func TestChatSessionHandler_StreamRequiresIDs(t *testing.T) {
	router := newChatRouter(NewChatSessionHandler(&fakeChatService{}), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat-sessions/s-1/stream?user_id=u-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatSessionHandler_StreamChecksOwnership(t *testing.T) {
	router := newChatRouter(NewChatSessionHandler(&fakeChatService{}), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat-sessions/s-1/stream?user_id=u-2&stream_id=a", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, decodeResponse(t, rec).Success)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat-sessions/missing/stream?user_id=u-1&stream_id=a", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func readEvent(t *testing.T, r *bufio.Reader) dtos.StreamResponse {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event dtos.StreamResponse
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		return event
	}
}

func TestChatSessionHandler_StreamDeliversEvents(t *testing.T) {
	svc := &fakeChatService{}
	h := NewChatSessionHandler(svc)
	server := httptest.NewServer(newChatRouter(h, ""))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	open := func(streamID string) *bufio.Reader {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/chat-sessions/s-1/stream?user_id=u-1&stream_id="+streamID, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
		r := bufio.NewReader(resp.Body)
		assert.Equal(t, "connected", readEvent(t, r).Event)
		return r
	}
	first := open("a")
	second := open("b")

	h.HandleStreamEvent("u-1", "s-1", "a", dtos.StreamResponse{Event: "assistant-delta", Data: "only a"})
	event := readEvent(t, first)
	assert.Equal(t, "assistant-delta", event.Event)
	assert.Equal(t, "only a", event.Data)

	h.HandleStreamEvent("u-1", "s-1", "", dtos.StreamResponse{Event: "scenario-updated"})
	assert.Equal(t, "scenario-updated", readEvent(t, first).Event)
	assert.Equal(t, "scenario-updated", readEvent(t, second).Event)

	// other users' sessions are not addressed by a broadcast
	h.HandleStreamEvent("u-2", "s-1", "", dtos.StreamResponse{Event: "response-done"})
	h.HandleStreamEvent("u-1", "s-1", "b", dtos.StreamResponse{Event: "response-done"})
	assert.Equal(t, "response-done", readEvent(t, second).Event)
}

func TestChatSessionHandler_CancelStream(t *testing.T) {
	svc := &fakeChatService{}
	h := NewChatSessionHandler(svc)
	router := newChatRouter(h, "u-1")

	h.streamMutex.Lock()
	streamChan := make(chan dtos.StreamResponse, 1)
	h.streams[streamKey("u-1", "s-1", "st")] = streamChan
	h.streamMutex.Unlock()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat-sessions/s-1/stream/cancel?stream_id=st", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u-1:s-1:st"}, svc.cancelled)
	_, open := <-streamChan
	assert.False(t, open)

	// events for a cancelled stream are dropped
	h.HandleStreamEvent("u-1", "s-1", "st", dtos.StreamResponse{Event: "assistant-delta"})
}
