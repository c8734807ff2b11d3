package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/dispatch"
	"tutor-ai/internal/models"
	"tutor-ai/internal/repositories"
	"tutor-ai/internal/scenario"
	"tutor-ai/internal/transcript"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ScenarioStateReader returns a conversation's scenario progress
type ScenarioStateReader interface {
	State(ctx context.Context, conversationID, userID string) (*scenario.State, error)
}

type WorkspaceService interface {
	GetWorkspace(ctx context.Context, sessionID string) (*dtos.WorkspaceResponse, uint32, error)
	ListSlides(ctx context.Context, sessionID string) (*dtos.SlideListResponse, uint32, error)
	ListFlashcards(ctx context.Context, sessionID string) (*dtos.FlashcardListResponse, uint32, error)
}

type workspaceService struct {
	sessionRepo repositories.ChatSessionRepository
	dispatchers *dispatch.Pool
	scenarios   ScenarioStateReader

	// concurrent loads of one session share a single aggregate query
	loads singleflight.Group
}

const workspaceLoadTimeout = 30 * time.Second

type workspaceLoad struct {
	resp   *dtos.WorkspaceResponse
	status uint32
}

func NewWorkspaceService(
	sessionRepo repositories.ChatSessionRepository,
	dispatchers *dispatch.Pool,
	scenarios ScenarioStateReader,
) WorkspaceService {
	return &workspaceService{
		sessionRepo: sessionRepo,
		dispatchers: dispatchers,
		scenarios:   scenarios,
	}
}

// GetWorkspace joins an in-flight load of the same session or starts one.
// A caller that goes away stops waiting without cancelling the shared load.
func (s *workspaceService) GetWorkspace(ctx context.Context, sessionID string) (*dtos.WorkspaceResponse, uint32, error) {
	results := s.loads.DoChan(sessionID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), workspaceLoadTimeout)
		defer cancel()
		resp, status, err := s.load(loadCtx, sessionID)
		return &workspaceLoad{resp: resp, status: status}, err
	})

	select {
	case res := <-results:
		load := res.Val.(*workspaceLoad)
		if res.Err != nil {
			return nil, load.status, res.Err
		}
		return load.resp, load.status, nil
	case <-ctx.Done():
		return nil, http.StatusRequestTimeout, ctx.Err()
	}
}

func (s *workspaceService) load(ctx context.Context, sessionID string) (*dtos.WorkspaceResponse, uint32, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, loadStatus(err), fmt.Errorf("failed to fetch chat session: %w", err)
	}
	if session == nil {
		return nil, http.StatusNotFound, errSessionNotFound
	}

	resp := &dtos.WorkspaceResponse{Session: *buildSessionResponse(session)}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		messages, err := s.sessionRepo.FindMessages(gctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to fetch messages: %w", err)
		}
		t := transcript.Build(messages)
		resp.Transcript = &t
		return nil
	})
	g.Go(func() error {
		dispatcher, err := s.dispatchers.Get(gctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load workspace: %w", err)
		}
		resp.Workspace = dispatcher.Workspace()
		return nil
	})
	if s.scenarios != nil {
		g.Go(func() error {
			state, err := s.scenarios.State(gctx, sessionID, session.UserID)
			if err != nil {
				return fmt.Errorf("failed to load scenario progress: %w", err)
			}
			resp.Scenario = state
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, loadStatus(err), err
	}
	return resp, http.StatusOK, nil
}

// loadStatus reports 409 when the workspace hydration was superseded by a conversation switch
func loadStatus(err error) uint32 {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, dispatch.ErrStaleLoad), errors.Is(err, context.Canceled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *workspaceService) ListSlides(ctx context.Context, sessionID string) (*dtos.SlideListResponse, uint32, error) {
	ws, status, err := s.workspace(ctx, sessionID)
	if err != nil {
		return nil, status, err
	}
	return &dtos.SlideListResponse{Slides: ws.Slides}, http.StatusOK, nil
}

func (s *workspaceService) ListFlashcards(ctx context.Context, sessionID string) (*dtos.FlashcardListResponse, uint32, error) {
	ws, status, err := s.workspace(ctx, sessionID)
	if err != nil {
		return nil, status, err
	}
	return &dtos.FlashcardListResponse{Flashcards: ws.Flashcards}, http.StatusOK, nil
}

func (s *workspaceService) workspace(ctx context.Context, sessionID string) (*dispatch.Workspace, uint32, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to fetch chat session: %w", err)
	}
	if session == nil {
		return nil, http.StatusNotFound, errSessionNotFound
	}
	dispatcher, err := s.dispatchers.Get(ctx, sessionID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to load workspace: %w", err)
	}
	ws := dispatcher.Workspace()
	if ws.Slides == nil {
		ws.Slides = []models.Slide{}
	}
	if ws.Flashcards == nil {
		ws.Flashcards = []models.Flashcard{}
	}
	return ws, http.StatusOK, nil
}
