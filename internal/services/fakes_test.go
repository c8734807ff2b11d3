package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/models"
	"tutor-ai/internal/repositories"
	"tutor-ai/pkg/agentbackend"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.ChatSession
	messages map[string][]models.ChatMessage
	countErr error
	counts   int
}

func newFakeSessionRepo(sessions ...*models.ChatSession) *fakeSessionRepo {
	r := &fakeSessionRepo{
		sessions: make(map[string]*models.ChatSession),
		messages: make(map[string][]models.ChatMessage),
	}
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *fakeSessionRepo) Create(_ context.Context, session *models.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id string) (*models.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) ListByUser(_ context.Context, userID string, page, pageSize int) ([]*models.ChatSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			copied := *s
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *fakeSessionRepo) ListPublic(_ context.Context, limit int) ([]*models.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ChatSession
	for _, s := range r.sessions {
		if s.IsPublic && len(out) < limit {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, id string, updates map[string]interface{}) (*models.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "title":
			s.Title = v.(string)
		case "agent_name":
			s.AgentName = v.(string)
		case "vector_store_id":
			vs := v.(string)
			s.VectorStoreID = &vs
		case "is_public":
			s.IsPublic = v.(bool)
		}
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) CreateMessage(_ context.Context, message *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[message.SessionID] = append(r.messages[message.SessionID], *message)
	return nil
}

func (r *fakeSessionRepo) FindMessages(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChatMessage(nil), r.messages[sessionID]...), nil
}

func (r *fakeSessionRepo) CountUserMessagesSince(_ context.Context, userID string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts++
	if r.countErr != nil {
		return 0, r.countErr
	}
	var n int64
	for sessionID, msgs := range r.messages {
		s, ok := r.sessions[sessionID]
		if !ok || s.UserID != userID {
			continue
		}
		for _, m := range msgs {
			if m.Role == "user" && !m.CreatedAt.Before(since) {
				n++
			}
		}
	}
	return n, nil
}

type fakeNoteRepo struct {
	mu    sync.Mutex
	notes map[string]*models.Note // key: session id
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]*models.Note)}
}

func (r *fakeNoteRepo) Find(_ context.Context, userID, sessionID string) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[sessionID]
	if !ok || n.UserID != userID {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (r *fakeNoteRepo) FindBySession(_ context.Context, sessionID string) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (r *fakeNoteRepo) Upsert(_ context.Context, note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *note
	r.notes[note.SessionID] = &copied
	return nil
}

type fakeWorkspaceRepo struct {
	mu         sync.Mutex
	flashcards map[string]models.Flashcard
	slides     map[string]models.Slide
	cvs        map[string]models.CVDocument
	err        error
}

func newFakeWorkspaceRepo() *fakeWorkspaceRepo {
	return &fakeWorkspaceRepo{
		flashcards: make(map[string]models.Flashcard),
		slides:     make(map[string]models.Slide),
		cvs:        make(map[string]models.CVDocument),
	}
}

func (r *fakeWorkspaceRepo) ListFlashcards(_ context.Context, sessionID string) ([]models.Flashcard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Flashcard
	for _, c := range r.flashcards {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeWorkspaceRepo) SaveFlashcard(_ context.Context, card *models.Flashcard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flashcards[card.ID] = *card
	return nil
}

func (r *fakeWorkspaceRepo) DeleteFlashcard(_ context.Context, _ string, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flashcards[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.flashcards, id)
	return nil
}

func (r *fakeWorkspaceRepo) ListSlides(_ context.Context, sessionID string) ([]models.Slide, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Slide
	for _, s := range r.slides {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeWorkspaceRepo) UpsertSlide(_ context.Context, slide *models.Slide) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slides[slide.SessionID+"/"+slide.ID] = *slide
	return nil
}

func (r *fakeWorkspaceRepo) FindCV(_ context.Context, sessionID string) (*models.CVDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cv, ok := r.cvs[sessionID]
	if !ok {
		return nil, nil
	}
	return &cv, nil
}

func (r *fakeWorkspaceRepo) UpsertCV(_ context.Context, cv *models.CVDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cvs[cv.SessionID] = *cv
	return nil
}

type fakeScenarioRepo struct {
	mu        sync.Mutex
	scenarios map[string]*models.Scenario
}

func newFakeScenarioRepo() *fakeScenarioRepo {
	return &fakeScenarioRepo{scenarios: make(map[string]*models.Scenario)}
}

func (r *fakeScenarioRepo) Create(_ context.Context, s *models.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.scenarios[s.ID] = &copied
	return nil
}

func (r *fakeScenarioRepo) FindByID(_ context.Context, id string) (*models.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scenarios[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeScenarioRepo) ListByUser(_ context.Context, userID string) ([]*models.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Scenario
	for _, s := range r.scenarios {
		if s.UserID == userID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeProgressStore struct {
	mu      sync.Mutex
	records map[string]*models.ScenarioProgress
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{records: make(map[string]*models.ScenarioProgress)}
}

func (s *fakeProgressStore) Load(_ context.Context, id string) (*models.ScenarioProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *fakeProgressStore) Save(_ context.Context, p *models.ScenarioProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *p
	s.records[p.ConversationID] = &copied
	return nil
}

func (s *fakeProgressStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// fakeBackend replays scripted events for every chat request
type fakeBackend struct {
	mu       sync.Mutex
	events   []agentbackend.Event
	err      error
	requests []agentbackend.ChatRequest
	block    chan struct{}
}

func (b *fakeBackend) StreamChat(ctx context.Context, req agentbackend.ChatRequest, onEvent func(agentbackend.Event) error) error {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	events, err, block := b.events, b.err, b.block
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, ev := range events {
		if err := onEvent(ev); err != nil {
			return err
		}
	}
	return err
}

func (b *fakeBackend) Requests() []agentbackend.ChatRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]agentbackend.ChatRequest(nil), b.requests...)
}

type streamedEvent struct {
	userID, sessionID, streamID string
	event                       string
	data                        interface{}
}

type recordingStreamHandler struct {
	mu     sync.Mutex
	events []streamedEvent
}

func (h *recordingStreamHandler) HandleStreamEvent(userID, sessionID, streamID string, response dtos.StreamResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, streamedEvent{userID, sessionID, streamID, response.Event, response.Data})
}

func (h *recordingStreamHandler) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.event)
	}
	return out
}

var errBoom = errors.New("boom")
