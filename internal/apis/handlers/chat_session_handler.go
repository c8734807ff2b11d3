package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/services"
	"tutor-ai/internal/utils"
	"tutor-ai/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	streamBufferSize  = 100
	streamSendTimeout = 100 * time.Millisecond
	heartbeatInterval = 30 * time.Second
)

type ChatSessionHandler struct {
	chatService services.ChatSessionService
	streamMutex sync.RWMutex
	streams     map[string]chan dtos.StreamResponse // key: userID:sessionID:streamID
	log         *zap.Logger
}

func NewChatSessionHandler(chatService services.ChatSessionService) *ChatSessionHandler {
	return &ChatSessionHandler{
		chatService: chatService,
		streams:     make(map[string]chan dtos.StreamResponse),
		log:         logger.Named("stream"),
	}
}

func streamKey(userID, sessionID, streamID string) string {
	return fmt.Sprintf("%s:%s:%s", userID, sessionID, streamID)
}

// @Summary Create a chat session
// @Accept json
// @Produce json
// @Param createChatSessionRequest body dtos.CreateChatSessionRequest true "Create chat session request"
// @Success 201 {object} dtos.Response

func (h *ChatSessionHandler) Create(c *gin.Context) {
	var req dtos.CreateChatSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	response, statusCode, err := h.chatService.Create(c.Request.Context(), &req)
	respond(c, response, statusCode, err)
}

// @Summary List chat sessions of a user
// @Param user_id query string true "User ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)

func (h *ChatSessionHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	response, statusCode, err := h.chatService.List(c.Request.Context(), userID(c, ""), page, pageSize)
	respond(c, response, statusCode, err)
}

func (h *ChatSessionHandler) ListPublic(c *gin.Context) {
	response, statusCode, err := h.chatService.ListPublic(c.Request.Context())
	respond(c, response, statusCode, err)
}

func (h *ChatSessionHandler) Get(c *gin.Context) {
	response, statusCode, err := h.chatService.Get(c.Request.Context(), c.Param("id"))
	respond(c, response, statusCode, err)
}

func (h *ChatSessionHandler) Update(c *gin.Context) {
	var req dtos.UpdateChatSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	response, statusCode, err := h.chatService.Update(c.Request.Context(), c.Param("id"), &req)
	respond(c, response, statusCode, err)
}

func (h *ChatSessionHandler) ListMessages(c *gin.Context) {
	response, statusCode, err := h.chatService.ListMessages(c.Request.Context(), c.Param("id"))
	respond(c, response, statusCode, err)
}

// @Summary Reconciled transcript of a chat session
// @Param id path string true "Chat session ID"

func (h *ChatSessionHandler) Transcript(c *gin.Context) {
	response, statusCode, err := h.chatService.Transcript(c.Request.Context(), c.Param("id"))
	respond(c, response, statusCode, err)
}

func (h *ChatSessionHandler) TodayMessageCount(c *gin.Context) {
	response, statusCode, err := h.chatService.TodayMessageCount(c.Request.Context(), userID(c, ""))
	respond(c, response, statusCode, err)
}

// @Summary Send a message
// @Description Stores the message and streams the agents' reply to the open SSE streams
// @Accept json
// @Produce json
// @Param id path string true "Chat session ID"
// @Param sendMessageRequest body dtos.SendMessageRequest true "Send message request"
// @Success 202 {object} dtos.Response

func (h *ChatSessionHandler) SendMessage(c *gin.Context) {
	var req dtos.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	response, statusCode, err := h.chatService.SendMessage(c.Request.Context(), c.Param("id"), &req)
	respond(c, response, statusCode, err)
}

// HandleStreamEvent implements the StreamHandler interface
func (h *ChatSessionHandler) HandleStreamEvent(userID, sessionID, streamID string, response dtos.StreamResponse) {
	h.streamMutex.RLock()
	defer h.streamMutex.RUnlock()

	if streamID != "" {
		h.send(streamKey(userID, sessionID, streamID), response)
		return
	}

	prefix := streamKey(userID, sessionID, "")
	for key := range h.streams {
		if strings.HasPrefix(key, prefix) {
			h.send(key, response)
		}
	}
}

// send must be called with streamMutex held
func (h *ChatSessionHandler) send(key string, response dtos.StreamResponse) {
	streamChan, exists := h.streams[key]
	if !exists {
		h.log.Debug("no stream found", zap.String("key", key))
		return
	}

	select {
	case streamChan <- response:
	case <-time.After(streamSendTimeout):
		h.log.Warn("timeout sending event to stream", zap.String("key", key), zap.String("event", response.Event))
	}
}

func writeEvent(c *gin.Context, response dtos.StreamResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	if _, err := c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data))); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

// @Summary Stream chat session events
// @Produce text/event-stream
// @Param id path string true "Chat session ID"
// @Param stream_id query string true "Stream ID"

// StreamChat handles SSE endpoint
func (h *ChatSessionHandler) StreamChat(c *gin.Context) {
	uid := userID(c, "")
	sessionID := c.Param("id")
	streamID := c.Query("stream_id")

	if streamID == "" || uid == "" {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("stream_id and user_id are required"),
		})
		return
	}

	session, statusCode, err := h.chatService.Get(c.Request.Context(), sessionID)
	if err != nil {
		respond(c, nil, statusCode, err)
		return
	}
	if session.UserID != uid {
		c.JSON(http.StatusForbidden, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("chat session belongs to another user"),
		})
		return
	}

	key := streamKey(uid, sessionID, streamID)
	streamChan := make(chan dtos.StreamResponse, streamBufferSize)

	h.streamMutex.Lock()
	if previous, exists := h.streams[key]; exists {
		close(previous)
	}
	h.streams[key] = streamChan
	h.streamMutex.Unlock()

	defer func() {
		h.streamMutex.Lock()
		if ch, exists := h.streams[key]; exists && ch == streamChan {
			close(ch)
			delete(h.streams, key)
		}
		h.streamMutex.Unlock()
		h.log.Debug("cleaned up stream", zap.String("key", key))
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	heartbeatTicker := time.NewTicker(heartbeatInterval)
	defer heartbeatTicker.Stop()

	if err := writeEvent(c, dtos.StreamResponse{Event: constants.StreamEventConnected, Data: "Stream established"}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("client disconnected", zap.String("key", key))
			return

		case <-heartbeatTicker.C:
			if err := writeEvent(c, dtos.StreamResponse{Event: constants.StreamEventHeartbeat, Data: "ping"}); err != nil {
				return
			}

		case msg, ok := <-streamChan:
			if !ok {
				return
			}
			if err := writeEvent(c, msg); err != nil {
				h.log.Warn("failed to write stream event", zap.String("key", key), zap.Error(err))
				return
			}
		}
	}
}

// CancelStream cancels the reply currently streaming on a stream and closes it
func (h *ChatSessionHandler) CancelStream(c *gin.Context) {
	uid := userID(c, "")
	sessionID := c.Param("id")
	streamID := c.Query("stream_id")

	if streamID == "" {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("stream_id is required"),
		})
		return
	}

	h.chatService.CancelProcessing(uid, sessionID, streamID)

	key := streamKey(uid, sessionID, streamID)
	h.streamMutex.Lock()
	if streamChan, ok := h.streams[key]; ok {
		close(streamChan)
		delete(h.streams, key)
	}
	h.streamMutex.Unlock()

	c.JSON(http.StatusOK, dtos.Response{
		Success: true,
		Data:    "Operation cancelled successfully",
	})
}
