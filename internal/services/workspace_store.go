package services

import (
	"context"
	"fmt"
	"sync"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/dispatch"
	"tutor-ai/internal/models"
	"tutor-ai/internal/notes"
	"tutor-ai/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// WorkspaceStore hydrates live workspaces from the primary store and persists
// every effect the dispatcher applies.
type WorkspaceStore struct {
	noteRepo      repositories.NoteRepository
	workspaceRepo repositories.WorkspaceRepository
	sessionRepo   repositories.ChatSessionRepository
	now           func() time.Time

	// note writes are read-modify-write, serialized per session
	noteLocks sync.Map
}

var (
	_ dispatch.WorkspaceLoader = (*WorkspaceStore)(nil)
	_ dispatch.EffectSink      = (*WorkspaceStore)(nil)
)

func NewWorkspaceStore(
	noteRepo repositories.NoteRepository,
	workspaceRepo repositories.WorkspaceRepository,
	sessionRepo repositories.ChatSessionRepository,
) *WorkspaceStore {
	return &WorkspaceStore{
		noteRepo:      noteRepo,
		workspaceRepo: workspaceRepo,
		sessionRepo:   sessionRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *WorkspaceStore) LoadWorkspace(ctx context.Context, sessionID string) (*dispatch.Workspace, error) {
	ws := dispatch.NewWorkspace(sessionID)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		note, err := s.noteRepo.FindBySession(gctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load note: %w", err)
		}
		if note != nil {
			ws.Paragraphs = notes.ContentToParagraphs(note.Content, note.UpdatedAt)
		}
		return nil
	})
	g.Go(func() error {
		cards, err := s.workspaceRepo.ListFlashcards(gctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load flashcards: %w", err)
		}
		if cards != nil {
			ws.Flashcards = cards
		}
		return nil
	})
	g.Go(func() error {
		slides, err := s.workspaceRepo.ListSlides(gctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load slides: %w", err)
		}
		if slides != nil {
			ws.Slides = slides
		}
		return nil
	})
	g.Go(func() error {
		cv, err := s.workspaceRepo.FindCV(gctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load cv: %w", err)
		}
		if cv != nil {
			ws.CV = cv.Content.Data
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *WorkspaceStore) Apply(ctx context.Context, effect dispatch.Effect) error {
	switch data := effect.Data.(type) {
	case notes.Paragraph:
		return s.appendParagraph(ctx, effect.SessionID, data)
	case models.Flashcard:
		if effect.Op == dispatch.OpDelete {
			return s.workspaceRepo.DeleteFlashcard(ctx, effect.SessionID, data.ID)
		}
		return s.workspaceRepo.SaveFlashcard(ctx, &data)
	case models.Slide:
		return s.workspaceRepo.UpsertSlide(ctx, &data)
	case map[string]interface{}:
		if effect.Event != constants.StreamEventCV {
			return fmt.Errorf("unexpected %s effect payload", effect.Event)
		}
		return s.workspaceRepo.UpsertCV(ctx, &models.CVDocument{
			SessionID: effect.SessionID,
			Content:   models.NewJSON(data),
			UpdatedAt: s.now(),
		})
	default:
		return fmt.Errorf("unsupported %s effect payload %T", effect.Event, effect.Data)
	}
}

func (s *WorkspaceStore) appendParagraph(ctx context.Context, sessionID string, p notes.Paragraph) error {
	lock, _ := s.noteLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	note, err := s.noteRepo.FindBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load note: %w", err)
	}
	if note == nil {
		session, err := s.sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		if session == nil {
			return fmt.Errorf("session %s: %w", sessionID, repositories.ErrNotFound)
		}
		note = &models.Note{ID: uuid.NewString(), UserID: session.UserID, SessionID: sessionID}
	}

	paragraphs := notes.ContentToParagraphs(note.Content, note.UpdatedAt)
	if notes.Contains(paragraphs, p.ID) {
		return nil
	}
	paragraphs = append(paragraphs, p)
	note.Content = notes.ParagraphsToContent(paragraphs)
	note.UpdatedAt = s.now()
	return s.noteRepo.Upsert(ctx, note)
}
