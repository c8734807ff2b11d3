package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/models"
	"tutor-ai/internal/notes"
	"tutor-ai/internal/repositories"
	"tutor-ai/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkspaceRefresher reloads a live workspace after an out-of-band edit
type WorkspaceRefresher interface {
	Refresh(ctx context.Context, sessionID string) error
}

type NotesService interface {
	Get(ctx context.Context, userID, sessionID string) (*dtos.NoteResponse, uint32, error)
	Save(ctx context.Context, req *dtos.NoteRequest) (*dtos.NoteResponse, uint32, error)
}

type notesService struct {
	noteRepo  repositories.NoteRepository
	refresher WorkspaceRefresher
	now       func() time.Time
}

func NewNotesService(noteRepo repositories.NoteRepository, refresher WorkspaceRefresher) NotesService {
	return &notesService{
		noteRepo:  noteRepo,
		refresher: refresher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *notesService) Get(ctx context.Context, userID, sessionID string) (*dtos.NoteResponse, uint32, error) {
	if userID == "" || sessionID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id and session_id are required")
	}

	note, err := s.noteRepo.Find(ctx, userID, sessionID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to fetch note: %w", err)
	}
	if note == nil {
		return &dtos.NoteResponse{
			UserID:     userID,
			SessionID:  sessionID,
			Paragraphs: []notes.Paragraph{},
		}, http.StatusOK, nil
	}
	return buildNoteResponse(note), http.StatusOK, nil
}

// Save stores either raw joined content or a paragraph list. Paragraph HTML is sanitized first.
func (s *notesService) Save(ctx context.Context, req *dtos.NoteRequest) (*dtos.NoteResponse, uint32, error) {
	if req.UserID == "" || req.SessionID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id and session_id are required")
	}

	now := s.now()
	var paragraphs []notes.Paragraph
	switch {
	case req.Paragraphs != nil:
		paragraphs = make([]notes.Paragraph, 0, len(req.Paragraphs))
		for _, p := range req.Paragraphs {
			p.Content = strings.TrimSpace(notes.Sanitize(p.Content))
			if p.Content == "" {
				continue
			}
			paragraphs = append(paragraphs, p)
		}
	case req.Content != nil:
		paragraphs = notes.ContentToParagraphs(*req.Content, now)
		for i := range paragraphs {
			paragraphs[i].Content = notes.Sanitize(paragraphs[i].Content)
		}
	default:
		return nil, http.StatusBadRequest, fmt.Errorf("content or paragraphs is required")
	}

	existing, err := s.noteRepo.Find(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to fetch note: %w", err)
	}
	note := &models.Note{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Content:   notes.ParagraphsToContent(paragraphs),
		UpdatedAt: now,
	}
	if existing != nil {
		note.ID = existing.ID
	}
	if err := s.noteRepo.Upsert(ctx, note); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to save note: %w", err)
	}
	if s.refresher != nil {
		if err := s.refresher.Refresh(ctx, req.SessionID); err != nil {
			logger.Named("notes").Warn("failed to refresh live workspace", zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}
	return buildNoteResponse(note), http.StatusOK, nil
}

func buildNoteResponse(note *models.Note) *dtos.NoteResponse {
	updatedAt := note.UpdatedAt
	return &dtos.NoteResponse{
		UserID:     note.UserID,
		SessionID:  note.SessionID,
		Content:    note.Content,
		Paragraphs: notes.ContentToParagraphs(note.Content, note.UpdatedAt),
		UpdatedAt:  &updatedAt,
	}
}
