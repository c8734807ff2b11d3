package dispatch

import (
	"context"
	"sort"
	"tutor-ai/internal/models"
	"tutor-ai/internal/notes"
)

// Workspace is the live side-effect state of one conversation
type Workspace struct {
	SessionID  string                 `json:"session_id"`
	Paragraphs []notes.Paragraph      `json:"paragraphs"`
	Flashcards []models.Flashcard     `json:"flashcards"`
	Slides     []models.Slide         `json:"slides"`
	CV         map[string]interface{} `json:"cv,omitempty"`
}

func NewWorkspace(sessionID string) *Workspace {
	return &Workspace{
		SessionID:  sessionID,
		Paragraphs: []notes.Paragraph{},
		Flashcards: []models.Flashcard{},
		Slides:     []models.Slide{},
	}
}

// WorkspaceLoader hydrates a workspace from persistent storage
type WorkspaceLoader interface {
	LoadWorkspace(ctx context.Context, sessionID string) (*Workspace, error)
}

func (w *Workspace) flashcardIndex(id string) int {
	for i := range w.Flashcards {
		if w.Flashcards[i].ID == id {
			return i
		}
	}
	return -1
}

func (w *Workspace) slideIndex(id string) int {
	for i := range w.Slides {
		if w.Slides[i].ID == id {
			return i
		}
	}
	return -1
}

func (w *Workspace) sortSlides() {
	sort.SliceStable(w.Slides, func(i, j int) bool {
		return notes.LessNumericID(w.Slides[i].ID, w.Slides[j].ID)
	})
}

// Clone returns a deep enough copy for callers to read without holding the dispatcher lock
func (w *Workspace) Clone() *Workspace {
	if w == nil {
		return nil
	}
	c := &Workspace{
		SessionID:  w.SessionID,
		Paragraphs: append([]notes.Paragraph{}, w.Paragraphs...),
		Flashcards: append([]models.Flashcard{}, w.Flashcards...),
		Slides:     append([]models.Slide{}, w.Slides...),
	}
	if w.CV != nil {
		c.CV = make(map[string]interface{}, len(w.CV))
		for k, v := range w.CV {
			c.CV[k] = v
		}
	}
	return c
}
