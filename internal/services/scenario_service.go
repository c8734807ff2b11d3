package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/models"
	"tutor-ai/internal/repositories"
	"tutor-ai/internal/scenario"
	"tutor-ai/pkg/llm"
	"tutor-ai/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LLMClientProvider resolves a registered LLM client by name
type LLMClientProvider interface {
	GetClient(name string) (llm.Client, error)
}

type ScenarioService interface {
	SetStreamHandler(handler StreamHandler)

	List(ctx context.Context, userID string) (*dtos.ScenarioListResponse, uint32, error)
	Generate(ctx context.Context, req *dtos.GenerateScenarioRequest) (*models.ScenarioData, uint32, error)
	Save(ctx context.Context, req *dtos.SaveScenarioRequest) (*models.ScenarioData, uint32, error)

	Progress(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error)
	Select(ctx context.Context, conversationID string, req *dtos.SelectScenarioRequest) (*scenario.State, uint32, error)
	Trigger(ctx context.Context, conversationID string, req *dtos.TriggerActionRequest) (*scenario.State, uint32, error)
	Advance(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error)
	Exit(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error)
	Continue(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error)
	Reset(ctx context.Context, conversationID, userID string) (uint32, error)

	// State implements ScenarioStateReader
	State(ctx context.Context, conversationID, userID string) (*scenario.State, error)
}

type scenarioService struct {
	scenarioRepo  repositories.ScenarioRepository
	trackers      *scenario.Manager
	llms          LLMClientProvider
	defaultClient string
	streamHandler StreamHandler
}

func NewScenarioService(
	scenarioRepo repositories.ScenarioRepository,
	trackers *scenario.Manager,
	llms LLMClientProvider,
	defaultClient string,
) ScenarioService {
	return &scenarioService{
		scenarioRepo:  scenarioRepo,
		trackers:      trackers,
		llms:          llms,
		defaultClient: defaultClient,
	}
}

func (s *scenarioService) SetStreamHandler(handler StreamHandler) {
	s.streamHandler = handler
}

// notify pushes the new progress to every stream open on the conversation
func (s *scenarioService) notify(conversationID, userID string, st *scenario.State) {
	if s.streamHandler == nil || userID == "" {
		return
	}
	s.streamHandler.HandleStreamEvent(userID, conversationID, "", dtos.StreamResponse{
		Event: constants.StreamEventScenarioUpdated,
		Data:  st,
	})
}

func (s *scenarioService) List(ctx context.Context, userID string) (*dtos.ScenarioListResponse, uint32, error) {
	catalog, err := scenario.Catalog()
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	resp := &dtos.ScenarioListResponse{Catalog: catalog, Saved: []models.ScenarioData{}}
	if userID == "" {
		return resp, http.StatusOK, nil
	}
	saved, err := s.scenarioRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to list saved scenarios: %w", err)
	}
	for _, sc := range saved {
		resp.Saved = append(resp.Saved, sc.Data())
	}
	return resp, http.StatusOK, nil
}

func (s *scenarioService) Generate(ctx context.Context, req *dtos.GenerateScenarioRequest) (*models.ScenarioData, uint32, error) {
	llmReq := llm.ScenarioRequest{
		Goal:     req.Goal,
		Level:    req.Level,
		Language: req.Language,
		MaxSteps: req.MaxSteps,
	}
	if err := llm.ValidateRequest(llmReq); err != nil {
		return nil, http.StatusBadRequest, err
	}

	name := req.Client
	if name == "" {
		name = s.defaultClient
	}
	client, err := s.llms.GetClient(name)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	generated, err := client.GenerateScenario(ctx, llmReq)
	if err != nil {
		logger.Named("scenario").Error("scenario generation failed",
			zap.String("client", name), zap.String("user_id", req.UserID), zap.Error(err))
		return nil, http.StatusBadGateway, fmt.Errorf("failed to generate scenario: %w", err)
	}
	if err := llm.ValidateScenario(generated); err != nil {
		return nil, http.StatusBadGateway, err
	}
	if generated.ID == "" {
		generated.ID = uuid.NewString()
	}
	return generated, http.StatusOK, nil
}

func (s *scenarioService) Save(ctx context.Context, req *dtos.SaveScenarioRequest) (*models.ScenarioData, uint32, error) {
	if req.UserID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id is required")
	}
	data := req.Scenario
	if err := llm.ValidateScenario(&data); err != nil {
		return nil, http.StatusBadRequest, err
	}

	record := &models.Scenario{
		UserID:      req.UserID,
		Title:       data.Title,
		Description: data.Description,
		Steps:       models.NewJSON(data.Steps),
		Base:        models.NewBase(),
	}
	if err := s.scenarioRepo.Create(ctx, record); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to save scenario: %w", err)
	}
	saved := record.Data()
	return &saved, http.StatusCreated, nil
}

func (s *scenarioService) State(ctx context.Context, conversationID, userID string) (*scenario.State, error) {
	tracker, err := s.trackers.Tracker(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	st := tracker.Snapshot()
	return &st, nil
}

func (s *scenarioService) Progress(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error) {
	st, err := s.State(ctx, conversationID, userID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return st, http.StatusOK, nil
}

func (s *scenarioService) resolve(ctx context.Context, req *dtos.SelectScenarioRequest) (*models.ScenarioData, uint32, error) {
	if req.Scenario != nil {
		data := *req.Scenario
		if err := llm.ValidateScenario(&data); err != nil {
			return nil, http.StatusBadRequest, err
		}
		return &data, http.StatusOK, nil
	}
	if req.ScenarioID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("scenario_id or scenario is required")
	}
	if found, ok := scenario.FindInCatalog(req.ScenarioID); ok {
		return found, http.StatusOK, nil
	}
	saved, err := s.scenarioRepo.FindByID(ctx, req.ScenarioID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to fetch scenario: %w", err)
	}
	if saved == nil {
		return nil, http.StatusNotFound, fmt.Errorf("scenario %s not found", req.ScenarioID)
	}
	data := saved.Data()
	return &data, http.StatusOK, nil
}

func (s *scenarioService) Select(ctx context.Context, conversationID string, req *dtos.SelectScenarioRequest) (*scenario.State, uint32, error) {
	data, status, err := s.resolve(ctx, req)
	if err != nil {
		return nil, status, err
	}
	return s.track(ctx, conversationID, req.UserID, func(t *scenario.Tracker) (scenario.State, error) {
		return t.Select(ctx, *data)
	})
}

func (s *scenarioService) Trigger(ctx context.Context, conversationID string, req *dtos.TriggerActionRequest) (*scenario.State, uint32, error) {
	if req.StepIndex == nil || req.ActionIndex == nil {
		return nil, http.StatusBadRequest, fmt.Errorf("step_index and action_index are required")
	}
	return s.track(ctx, conversationID, req.UserID, func(t *scenario.Tracker) (scenario.State, error) {
		return t.TriggerAction(ctx, *req.StepIndex, *req.ActionIndex)
	})
}

func (s *scenarioService) Advance(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error) {
	return s.track(ctx, conversationID, userID, func(t *scenario.Tracker) (scenario.State, error) {
		return t.AdvanceStep(ctx)
	})
}

func (s *scenarioService) Exit(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error) {
	return s.track(ctx, conversationID, userID, func(t *scenario.Tracker) (scenario.State, error) {
		return t.Exit(ctx)
	})
}

func (s *scenarioService) Continue(ctx context.Context, conversationID, userID string) (*scenario.State, uint32, error) {
	return s.track(ctx, conversationID, userID, func(t *scenario.Tracker) (scenario.State, error) {
		return t.Continue()
	})
}

func (s *scenarioService) Reset(ctx context.Context, conversationID, userID string) (uint32, error) {
	if err := s.trackers.Reset(ctx, conversationID, userID); err != nil {
		return http.StatusInternalServerError, err
	}
	s.notify(conversationID, userID, &scenario.State{ConversationID: conversationID})
	return http.StatusNoContent, nil
}

func (s *scenarioService) track(ctx context.Context, conversationID, userID string, op func(*scenario.Tracker) (scenario.State, error)) (*scenario.State, uint32, error) {
	if conversationID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("conversation id is required")
	}
	tracker, err := s.trackers.Tracker(ctx, conversationID, userID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	st, err := op(tracker)
	if err != nil {
		return nil, scenarioErrorStatus(err), err
	}
	s.notify(conversationID, userID, &st)
	return &st, http.StatusOK, nil
}

func scenarioErrorStatus(err error) uint32 {
	switch {
	case errors.Is(err, scenario.ErrNoActiveScenario):
		return http.StatusConflict
	case errors.Is(err, scenario.ErrInvalidStep), errors.Is(err, scenario.ErrInvalidAction), errors.Is(err, scenario.ErrEmptyScenario):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ScenarioChatTransport sends scenario prompts into the conversation as user messages
type ScenarioChatTransport struct {
	chat ChatSessionService
}

var _ scenario.ChatTransport = (*ScenarioChatTransport)(nil)

func NewScenarioChatTransport(chat ChatSessionService) *ScenarioChatTransport {
	return &ScenarioChatTransport{chat: chat}
}

func (t *ScenarioChatTransport) Send(ctx context.Context, conversationID, userID, prompt string) error {
	_, status, err := t.chat.SendMessage(ctx, conversationID, &dtos.SendMessageRequest{
		UserID:  userID,
		Content: prompt,
	})
	if err != nil {
		return fmt.Errorf("send failed with status %d: %w", status, err)
	}
	return nil
}
