// Package scenario tracks a conversation's position inside a guided scenario
// and keeps it persisted for resumption.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"tutor-ai/internal/models"
	"tutor-ai/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrNoActiveScenario = errors.New("no active scenario")
	ErrInvalidStep      = errors.New("step index out of range")
	ErrInvalidAction    = errors.New("action index out of range")
	ErrEmptyScenario    = errors.New("scenario has no steps")
)

// ProgressStore persists progress records keyed by conversation id.
// Load returns nil, nil when no record exists.
type ProgressStore interface {
	Load(ctx context.Context, conversationID string) (*models.ScenarioProgress, error)
	Save(ctx context.Context, progress *models.ScenarioProgress) error
	Delete(ctx context.Context, conversationID string) error
}

// ChatTransport delivers a user prompt into the conversation
type ChatTransport interface {
	Send(ctx context.Context, conversationID, userID, prompt string) error
}

type Options struct {
	SaveDebounce time.Duration
	StepDelay    time.Duration
	SaveTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		SaveDebounce: 1000 * time.Millisecond,
		StepDelay:    500 * time.Millisecond,
		SaveTimeout:  10 * time.Second,
	}
}

// State is a point-in-time view of a tracker
type State struct {
	ConversationID   string               `json:"conversation_id"`
	Active           bool                 `json:"active"`
	Scenario         *models.ScenarioData `json:"scenario,omitempty"`
	CurrentStep      int                  `json:"current_step"`
	CompletedSteps   []int                `json:"completed_steps"`
	TriggeredActions map[string]bool      `json:"triggered_actions"`
	Resumable        bool                 `json:"resumable"`
}

// Tracker is the progress state machine of one conversation:
// Idle -> Active on Select or Load, Active -> Idle on Exit or Reset.
type Tracker struct {
	mu             sync.Mutex
	conversationID string
	userID         string
	store          ProgressStore
	transport      ChatTransport
	opts           Options
	log            *zap.Logger

	scenario  *models.ScenarioData
	active    bool
	current   int
	completed map[int]bool
	triggered map[string]bool
	persisted bool
	dirty     bool

	// loadingRef closes the window between a load starting and isLoading being observed
	loadingRef atomic.Bool
	isLoading  bool

	// saveMu orders store writes so a running debounced save cannot land after a newer one
	saveMu sync.Mutex
	saver  *Debouncer
}

func NewTracker(conversationID, userID string, store ProgressStore, transport ChatTransport, opts Options) *Tracker {
	t := &Tracker{
		conversationID: conversationID,
		userID:         userID,
		store:          store,
		transport:      transport,
		opts:           opts,
		log:            logger.Named("scenario").With(zap.String("conversation_id", conversationID)),
		completed:      make(map[int]bool),
		triggered:      make(map[string]bool),
	}
	t.saver = NewDebouncer(opts.SaveDebounce, t.debouncedSave)
	return t
}

// ActionKey is the triggered-action key of an action within a step
func ActionKey(step, action int) string {
	return fmt.Sprintf("%d_%d", step, action)
}

// Select starts a scenario from its first step and persists immediately
func (t *Tracker) Select(ctx context.Context, scenario models.ScenarioData) (State, error) {
	if len(scenario.Steps) == 0 {
		return State{}, ErrEmptyScenario
	}
	t.saver.Cancel()
	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.Lock()
	t.scenario = &scenario
	t.active = true
	t.current = 0
	t.completed = make(map[int]bool)
	t.triggered = make(map[string]bool)
	record := t.recordLocked()
	t.dirty = false
	t.mu.Unlock()

	if err := t.store.Save(ctx, record); err != nil {
		t.markDirty()
		return t.Snapshot(), fmt.Errorf("failed to persist scenario selection: %w", err)
	}
	t.mu.Lock()
	t.persisted = true
	t.mu.Unlock()
	return t.Snapshot(), nil
}

// TriggerAction marks an action of a step as triggered, completes the step and
// sends the action's prompt, enriched with scenario context, to the chat.
func (t *Tracker) TriggerAction(ctx context.Context, step, action int) (State, error) {
	t.mu.Lock()
	if !t.active || t.scenario == nil {
		t.mu.Unlock()
		return State{}, ErrNoActiveScenario
	}
	if step < 0 || step >= len(t.scenario.Steps) {
		t.mu.Unlock()
		return State{}, ErrInvalidStep
	}
	if action < 0 || action >= len(t.scenario.Steps[step].Actions) {
		t.mu.Unlock()
		return State{}, ErrInvalidAction
	}

	t.triggered[ActionKey(step, action)] = true
	t.completed[step] = true
	t.dirty = true
	prompt := EnrichPrompt(*t.scenario, step, action)
	t.mu.Unlock()

	t.saver.Trigger()

	if t.transport != nil {
		if err := t.transport.Send(ctx, t.conversationID, t.userID, prompt); err != nil {
			return t.Snapshot(), fmt.Errorf("failed to send scenario prompt: %w", err)
		}
	}
	return t.Snapshot(), nil
}

// AdvanceStep moves to the next step after the configured delay.
// The last step is never passed; completion is implicit.
func (t *Tracker) AdvanceStep(ctx context.Context) (State, error) {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()
	if !active {
		return State{}, ErrNoActiveScenario
	}

	if t.opts.StepDelay > 0 {
		timer := time.NewTimer(t.opts.StepDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return t.Snapshot(), ctx.Err()
		}
	}

	t.mu.Lock()
	if !t.active || t.scenario == nil {
		t.mu.Unlock()
		return State{}, ErrNoActiveScenario
	}
	if t.current < len(t.scenario.Steps)-1 {
		t.current++
		t.dirty = true
	}
	dirty := t.dirty
	t.mu.Unlock()

	if dirty {
		t.saver.Trigger()
	}
	return t.Snapshot(), nil
}

// Exit persists the current progress and leaves the scenario. The record is
// kept so the scenario can be continued later.
func (t *Tracker) Exit(ctx context.Context) (State, error) {
	t.saver.Cancel()
	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.Lock()
	if !t.active || t.scenario == nil {
		t.mu.Unlock()
		return t.Snapshot(), nil
	}
	record := t.recordLocked()
	record.Exited = true
	t.mu.Unlock()

	if err := t.store.Save(ctx, record); err != nil {
		return t.Snapshot(), fmt.Errorf("failed to persist scenario progress: %w", err)
	}

	t.mu.Lock()
	t.dirty = false
	t.persisted = true
	t.active = false
	t.mu.Unlock()
	return t.Snapshot(), nil
}

// Continue re-activates the persisted scenario after an Exit
func (t *Tracker) Continue() (State, error) {
	t.mu.Lock()
	if t.scenario == nil {
		t.mu.Unlock()
		return State{}, ErrNoActiveScenario
	}
	resumed := !t.active
	t.active = true
	if resumed {
		t.dirty = true
	}
	t.mu.Unlock()

	if resumed {
		t.saver.Trigger()
	}
	return t.Snapshot(), nil
}

// Reset deletes the persisted record and returns to Idle
func (t *Tracker) Reset(ctx context.Context) error {
	t.saver.Cancel()
	t.saveMu.Lock()
	defer t.saveMu.Unlock()
	if err := t.store.Delete(ctx, t.conversationID); err != nil {
		return fmt.Errorf("failed to delete scenario progress: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.scenario = nil
	t.active = false
	t.current = 0
	t.completed = make(map[int]bool)
	t.triggered = make(map[string]bool)
	t.persisted = false
	t.dirty = false
	return nil
}

// Load restores the persisted record. Debounced saves are skipped while it runs.
// A record left through Exit is restored as resumable, not active.
func (t *Tracker) Load(ctx context.Context) (State, error) {
	t.loadingRef.Store(true)
	t.mu.Lock()
	t.isLoading = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.isLoading = false
		t.mu.Unlock()
		t.loadingRef.Store(false)
	}()

	record, err := t.store.Load(ctx, t.conversationID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load scenario progress: %w", err)
	}

	t.mu.Lock()
	if record == nil {
		t.mu.Unlock()
		return t.Snapshot(), nil
	}
	scenario := record.Scenario.Data
	t.scenario = &scenario
	t.active = !record.Exited
	t.current = record.CurrentStep
	t.completed = make(map[int]bool, len(record.CompletedSteps.Data))
	for _, s := range record.CompletedSteps.Data {
		t.completed[s] = true
	}
	t.triggered = make(map[string]bool, len(record.TriggeredActions.Data))
	for k, v := range record.TriggeredActions.Data {
		t.triggered[k] = v
	}
	if record.UserID != "" && t.userID == "" {
		t.userID = record.UserID
	}
	t.persisted = true
	t.dirty = false
	t.mu.Unlock()
	return t.Snapshot(), nil
}

// Close flushes a pending save
func (t *Tracker) Close() {
	t.saver.Stop()
}

// Snapshot returns the current state
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := State{
		ConversationID:   t.conversationID,
		Active:           t.active,
		CurrentStep:      t.current,
		CompletedSteps:   sortedSteps(t.completed),
		TriggeredActions: make(map[string]bool, len(t.triggered)),
		Resumable:        !t.active && t.persisted && t.scenario != nil,
	}
	for k, v := range t.triggered {
		st.TriggeredActions[k] = v
	}
	if t.scenario != nil {
		s := *t.scenario
		st.Scenario = &s
	}
	return st
}

func (t *Tracker) markDirty() {
	t.mu.Lock()
	t.dirty = true
	t.mu.Unlock()
}

func (t *Tracker) debouncedSave() {
	if t.loadingRef.Load() {
		t.log.Debug("skipping scenario save while progress loads")
		return
	}
	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.Lock()
	if t.isLoading || !t.active || t.scenario == nil || !t.dirty {
		t.mu.Unlock()
		return
	}
	record := t.recordLocked()
	t.dirty = false
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.opts.SaveTimeout)
	defer cancel()
	if err := t.store.Save(ctx, record); err != nil {
		t.markDirty()
		t.log.Error("failed to save scenario progress", zap.Error(err))
		return
	}
	t.mu.Lock()
	t.persisted = true
	t.mu.Unlock()
}

func (t *Tracker) recordLocked() *models.ScenarioProgress {
	triggered := make(map[string]bool, len(t.triggered))
	for k, v := range t.triggered {
		triggered[k] = v
	}
	return &models.ScenarioProgress{
		ConversationID:   t.conversationID,
		UserID:           t.userID,
		Scenario:         models.NewJSON(*t.scenario),
		CurrentStep:      t.current,
		CompletedSteps:   models.NewJSON(sortedSteps(t.completed)),
		TriggeredActions: models.NewJSON(triggered),
		UpdatedAt:        time.Now().UTC(),
	}
}

func sortedSteps(set map[int]bool) []int {
	steps := make([]int, 0, len(set))
	for s, ok := range set {
		if ok {
			steps = append(steps, s)
		}
	}
	sort.Ints(steps)
	return steps
}

// EnrichPrompt prefixes an action prompt with where the learner is in the scenario
func EnrichPrompt(scenario models.ScenarioData, step, action int) string {
	s := scenario.Steps[step]
	var b strings.Builder
	fmt.Fprintf(&b, "[Scenario: %s | Step %d of %d: %s]\n", scenario.Title, step+1, len(scenario.Steps), s.Title)
	if s.Description != "" {
		b.WriteString(s.Description)
		b.WriteString("\n\n")
	}
	b.WriteString(s.Actions[action].Prompt)
	return b.String()
}
