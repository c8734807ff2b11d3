package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/dispatch"
	"tutor-ai/internal/models"
	"tutor-ai/internal/repositories"
	"tutor-ai/internal/transcript"
	"tutor-ai/pkg/agentbackend"
	"tutor-ai/pkg/cache"
	"tutor-ai/pkg/logger"

	"go.uber.org/zap"
)

const (
	todayCountTTL   = time.Minute
	publicListLimit = 50
)

var (
	errSessionNotFound  = errors.New("chat session not found")
	errSessionForbidden = errors.New("chat session belongs to another user")
)

// StreamHandler delivers events to connected SSE clients. An empty streamID
// addresses every stream open on the session.
type StreamHandler interface {
	HandleStreamEvent(userID, sessionID, streamID string, response dtos.StreamResponse)
}

// ChatBackend is the agent backend's streaming chat endpoint
type ChatBackend interface {
	StreamChat(ctx context.Context, req agentbackend.ChatRequest, onEvent func(agentbackend.Event) error) error
}

type ChatSessionService interface {
	SetStreamHandler(handler StreamHandler)

	Create(ctx context.Context, req *dtos.CreateChatSessionRequest) (*dtos.ChatSessionResponse, uint32, error)
	Get(ctx context.Context, id string) (*dtos.ChatSessionResponse, uint32, error)
	Update(ctx context.Context, id string, req *dtos.UpdateChatSessionRequest) (*dtos.ChatSessionResponse, uint32, error)
	List(ctx context.Context, userID string, page, pageSize int) (*dtos.ChatSessionListResponse, uint32, error)
	ListPublic(ctx context.Context) (*dtos.ChatSessionListResponse, uint32, error)
	ListMessages(ctx context.Context, id string) (*dtos.MessageListResponse, uint32, error)
	Transcript(ctx context.Context, id string) (*transcript.Transcript, uint32, error)
	TodayMessageCount(ctx context.Context, userID string) (*dtos.TodayMessageCountResponse, uint32, error)

	SendMessage(ctx context.Context, sessionID string, req *dtos.SendMessageRequest) (*dtos.SendMessageResponse, uint32, error)
	CancelProcessing(userID, sessionID, streamID string)
	Wait()
}

type chatSessionService struct {
	sessionRepo       repositories.ChatSessionRepository
	backend           ChatBackend
	dispatchers       *dispatch.Pool
	cache             cache.Cache
	dailyMessageLimit int
	now               func() time.Time

	streamHandler   StreamHandler
	activeProcesses map[string]*activeProcess // key: userID:sessionID:streamID
	processesMu     sync.RWMutex
	wg              sync.WaitGroup

	// the daily-limit check and the insert run under one lock per user
	userLocks sync.Map
}

func NewChatSessionService(
	sessionRepo repositories.ChatSessionRepository,
	backend ChatBackend,
	dispatchers *dispatch.Pool,
	c cache.Cache,
	dailyMessageLimit int,
) ChatSessionService {
	return &chatSessionService{
		sessionRepo:       sessionRepo,
		backend:           backend,
		dispatchers:       dispatchers,
		cache:             c,
		dailyMessageLimit: dailyMessageLimit,
		now:               func() time.Time { return time.Now().UTC() },
		activeProcesses:   make(map[string]*activeProcess),
	}
}

func (s *chatSessionService) SetStreamHandler(handler StreamHandler) {
	s.streamHandler = handler
}

func (s *chatSessionService) sendStreamEvent(userID, sessionID, streamID string, response dtos.StreamResponse) {
	if s.streamHandler != nil {
		s.streamHandler.HandleStreamEvent(userID, sessionID, streamID, response)
	}
}

func (s *chatSessionService) Create(ctx context.Context, req *dtos.CreateChatSessionRequest) (*dtos.ChatSessionResponse, uint32, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New chat"
	}

	session := models.NewChatSession(req.UserID, title, req.AgentName)
	session.VectorStoreID = req.VectorStoreID
	session.IsPublic = req.IsPublic
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to create chat session: %w", err)
	}
	return buildSessionResponse(session), http.StatusCreated, nil
}

func (s *chatSessionService) Get(ctx context.Context, id string) (*dtos.ChatSessionResponse, uint32, error) {
	session, status, err := s.findSession(ctx, id)
	if err != nil {
		return nil, status, err
	}
	return buildSessionResponse(session), http.StatusOK, nil
}

func (s *chatSessionService) findSession(ctx context.Context, id string) (*models.ChatSession, uint32, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to fetch chat session: %w", err)
	}
	if session == nil {
		return nil, http.StatusNotFound, errSessionNotFound
	}
	return session, http.StatusOK, nil
}

func (s *chatSessionService) Update(ctx context.Context, id string, req *dtos.UpdateChatSessionRequest) (*dtos.ChatSessionResponse, uint32, error) {
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.AgentName != nil {
		updates["agent_name"] = *req.AgentName
	}
	if req.VectorStoreID != nil {
		updates["vector_store_id"] = *req.VectorStoreID
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}
	if len(updates) == 0 {
		return nil, http.StatusBadRequest, fmt.Errorf("nothing to update")
	}

	session, err := s.sessionRepo.Update(ctx, id, updates)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && session == nil) {
		return nil, http.StatusNotFound, errSessionNotFound
	}
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to update chat session: %w", err)
	}
	return buildSessionResponse(session), http.StatusOK, nil
}

func (s *chatSessionService) List(ctx context.Context, userID string, page, pageSize int) (*dtos.ChatSessionListResponse, uint32, error) {
	if userID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id is required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	sessions, total, err := s.sessionRepo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	return buildSessionList(sessions, total), http.StatusOK, nil
}

func (s *chatSessionService) ListPublic(ctx context.Context) (*dtos.ChatSessionListResponse, uint32, error) {
	sessions, err := s.sessionRepo.ListPublic(ctx, publicListLimit)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to list public sessions: %w", err)
	}
	return buildSessionList(sessions, int64(len(sessions))), http.StatusOK, nil
}

func (s *chatSessionService) ListMessages(ctx context.Context, id string) (*dtos.MessageListResponse, uint32, error) {
	if _, status, err := s.findSession(ctx, id); err != nil {
		return nil, status, err
	}
	messages, err := s.sessionRepo.FindMessages(ctx, id)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return &dtos.MessageListResponse{Messages: messages}, http.StatusOK, nil
}

// Transcript rebuilds the display transcript from the raw log
func (s *chatSessionService) Transcript(ctx context.Context, id string) (*transcript.Transcript, uint32, error) {
	resp, status, err := s.ListMessages(ctx, id)
	if err != nil {
		return nil, status, err
	}
	t := transcript.Build(resp.Messages)
	return &t, http.StatusOK, nil
}

func todayCountKey(userID string, day time.Time) string {
	return fmt.Sprintf("today-count:%s:%s", userID, day.Format("2006-01-02"))
}

func (s *chatSessionService) countToday(ctx context.Context, userID string) (int64, error) {
	now := s.now()
	key := todayCountKey(userID, now)

	var count int64
	if err := cache.GetJSON(ctx, s.cache, key, &count); err == nil {
		return count, nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := s.sessionRepo.CountUserMessagesSince(ctx, userID, midnight)
	if err != nil {
		return 0, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, count, todayCountTTL); err != nil {
		logger.Named("chat").Warn("failed to cache today count", zap.String("user_id", userID), zap.Error(err))
	}
	return count, nil
}

func (s *chatSessionService) TodayMessageCount(ctx context.Context, userID string) (*dtos.TodayMessageCountResponse, uint32, error) {
	if userID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id is required")
	}
	count, err := s.countToday(ctx, userID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to count messages: %w", err)
	}

	resp := &dtos.TodayMessageCountResponse{Count: count, Limit: s.dailyMessageLimit, Remaining: -1}
	if s.dailyMessageLimit > 0 {
		resp.Remaining = int64(s.dailyMessageLimit) - count
		if resp.Remaining < 0 {
			resp.Remaining = 0
		}
	}
	return resp, http.StatusOK, nil
}

// SendMessage stores the user turn and streams the agents' reply to the session's SSE clients
func (s *chatSessionService) SendMessage(ctx context.Context, sessionID string, req *dtos.SendMessageRequest) (*dtos.SendMessageResponse, uint32, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("content is required")
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id is required")
	}
	session, status, err := s.findOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, status, err
	}

	message, status, err := s.storeUserMessage(ctx, sessionID, userID, content)
	if err != nil {
		return nil, status, err
	}

	agentName := req.AgentName
	if agentName == "" {
		agentName = session.AgentName
	}
	vectorStoreID := req.VectorStoreID
	if vectorStoreID == "" && session.VectorStoreID != nil {
		vectorStoreID = *session.VectorStoreID
	}

	chatReq := agentbackend.ChatRequest{
		ConversationID: sessionID,
		UserID:         userID,
		AgentName:      agentName,
		Message:        content,
		VectorStoreID:  vectorStoreID,
	}
	s.startProcessing(userID, sessionID, req.StreamID, chatReq)

	return &dtos.SendMessageResponse{MessageID: message.ID, StreamID: req.StreamID}, http.StatusAccepted, nil
}

// findOwnedSession loads the session and checks it belongs to userID
func (s *chatSessionService) findOwnedSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, uint32, error) {
	session, status, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, status, err
	}
	if session.UserID != userID {
		return nil, http.StatusForbidden, errSessionForbidden
	}
	return session, http.StatusOK, nil
}

func (s *chatSessionService) lockUser(userID string) func() {
	lock, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// storeUserMessage enforces the daily limit and appends the user turn
func (s *chatSessionService) storeUserMessage(ctx context.Context, sessionID, userID, content string) (*models.ChatMessage, uint32, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	if s.dailyMessageLimit > 0 {
		count, err := s.countToday(ctx, userID)
		if err != nil {
			return nil, http.StatusInternalServerError, fmt.Errorf("failed to count messages: %w", err)
		}
		if count >= int64(s.dailyMessageLimit) {
			return nil, http.StatusTooManyRequests, fmt.Errorf("daily message limit of %d reached", s.dailyMessageLimit)
		}
	}

	message := models.NewChatMessage(sessionID, string(constants.MessageRoleUser), content)
	message.CreatedAt = s.now()
	if err := s.sessionRepo.CreateMessage(ctx, message); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to store message: %w", err)
	}
	if err := s.cache.Del(ctx, todayCountKey(userID, s.now())); err != nil {
		logger.Named("chat").Warn("failed to invalidate today count", zap.String("user_id", userID), zap.Error(err))
	}
	return message, http.StatusOK, nil
}

// processKey identifies a running reply. Replies sent without a stream id
// are broadcast and share the session's empty-stream key.
func processKey(userID, sessionID, streamID string) string {
	return fmt.Sprintf("%s:%s:%s", userID, sessionID, streamID)
}

type activeProcess struct {
	cancel context.CancelFunc
}

func (s *chatSessionService) startProcessing(userID, sessionID, streamID string, chatReq agentbackend.ChatRequest) {
	ctx, cancel := context.WithCancel(context.Background())
	key := processKey(userID, sessionID, streamID)
	process := &activeProcess{cancel: cancel}

	s.processesMu.Lock()
	if previous, exists := s.activeProcesses[key]; exists {
		previous.cancel()
	}
	s.activeProcesses[key] = process
	s.processesMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			cancel()
			s.processesMu.Lock()
			if s.activeProcesses[key] == process {
				delete(s.activeProcesses, key)
			}
			s.processesMu.Unlock()
		}()
		s.processReply(ctx, userID, sessionID, streamID, chatReq)
	}()
}

func (s *chatSessionService) processReply(ctx context.Context, userID, sessionID, streamID string, chatReq agentbackend.ChatRequest) {
	log := logger.Named("chat").With(zap.String("session_id", sessionID), zap.String("stream_id", streamID))

	dispatcher, err := s.dispatchers.Get(ctx, sessionID)
	if err != nil {
		log.Warn("workspace unavailable, tool results will not be applied", zap.Error(err))
	}

	reply := newReplyLog(sessionID, s.now)
	// partial replies are kept when the stream is cancelled or fails
	defer reply.flush(context.WithoutCancel(ctx), s.sessionRepo, log)

	err = s.backend.StreamChat(ctx, chatReq, func(ev agentbackend.Event) error {
		switch ev.Type {
		case agentbackend.EventTextDelta:
			reply.appendText(ev.MessageID, ev.AgentName, ev.Content)
			s.sendStreamEvent(userID, sessionID, streamID, dtos.StreamResponse{
				Event: constants.StreamEventAssistantDelta,
				Data:  map[string]string{"message_id": ev.MessageID, "agent_name": ev.AgentName, "content": ev.Content},
			})
		case agentbackend.EventToolInvocation:
			if ev.ToolInvocation == nil {
				return nil
			}
			inv := toTranscriptInvocation(ev.ToolInvocation)
			if err := reply.recordTool(ctx, s.sessionRepo, ev.AgentName, inv); err != nil {
				log.Warn("failed to store tool message", zap.String("tool", inv.ToolName), zap.Error(err))
			}
			s.sendStreamEvent(userID, sessionID, streamID, dtos.StreamResponse{
				Event: constants.StreamEventToolInvocation,
				Data:  inv,
			})
			if dispatcher == nil {
				return nil
			}
			for _, effect := range dispatcher.ProcessInvocations(ctx, []transcript.ToolInvocation{inv}) {
				s.sendStreamEvent(userID, sessionID, streamID, dtos.StreamResponse{Event: effect.Event, Data: effect})
			}
		case agentbackend.EventAgentSwitch:
			if ev.AgentName != "" {
				if _, err := s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{"agent_name": ev.AgentName}); err != nil {
					log.Warn("failed to record agent switch", zap.Error(err))
				}
			}
		case agentbackend.EventError:
			s.sendStreamEvent(userID, sessionID, streamID, dtos.StreamResponse{
				Event: constants.StreamEventResponseError,
				Data:  ev.Error,
			})
		case agentbackend.EventDone:
			reply.flush(ctx, s.sessionRepo, log)
			s.sendStreamEvent(userID, sessionID, streamID, dtos.StreamResponse{
				Event: constants.StreamEventResponseDone,
				Data:  map[string]string{"message_id": ev.MessageID},
			})
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("agent reply failed", zap.Error(err))
		s.sendStreamEvent(userID, sessionID, streamID, dtos.StreamResponse{
			Event: constants.StreamEventResponseError,
			Data:  "The agents could not answer, please try again",
		})
	}
}

func toTranscriptInvocation(inv *agentbackend.ToolInvocation) transcript.ToolInvocation {
	return transcript.ToolInvocation{
		ToolName:   inv.ToolName,
		ToolCallID: inv.ToolCallID,
		Args:       inv.Args,
		Result:     inv.Result,
		State:      transcript.InvocationState(inv.State),
	}
}

// CancelProcessing stops the reply running on the stream and any broadcast reply of the session
func (s *chatSessionService) CancelProcessing(userID, sessionID, streamID string) {
	keys := []string{processKey(userID, sessionID, streamID)}
	if streamID != "" {
		keys = append(keys, processKey(userID, sessionID, ""))
	}

	var cancels []context.CancelFunc
	s.processesMu.Lock()
	for _, key := range keys {
		if process, exists := s.activeProcesses[key]; exists {
			cancels = append(cancels, process.cancel)
			delete(s.activeProcesses, key)
		}
	}
	s.processesMu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Wait blocks until every in-flight reply finished
func (s *chatSessionService) Wait() {
	s.wg.Wait()
}

func buildSessionResponse(session *models.ChatSession) *dtos.ChatSessionResponse {
	return &dtos.ChatSessionResponse{
		ID:            session.ID,
		UserID:        session.UserID,
		Title:         session.Title,
		AgentName:     session.AgentName,
		VectorStoreID: session.VectorStoreID,
		IsPublic:      session.IsPublic,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}

func buildSessionList(sessions []*models.ChatSession, total int64) *dtos.ChatSessionListResponse {
	resp := &dtos.ChatSessionListResponse{Sessions: make([]dtos.ChatSessionResponse, 0, len(sessions)), Total: total}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, *buildSessionResponse(session))
	}
	return resp
}
