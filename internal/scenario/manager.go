package scenario

import (
	"context"
	"sync"
)

// Manager keeps one tracker per conversation, restored from the store on first use
type Manager struct {
	mu        sync.Mutex
	store     ProgressStore
	transport ChatTransport
	opts      Options
	trackers  map[string]*trackerEntry
}

type trackerEntry struct {
	tracker *Tracker
	ready   chan struct{}
	err     error
}

func NewManager(store ProgressStore, transport ChatTransport, opts Options) *Manager {
	return &Manager{
		store:     store,
		transport: transport,
		opts:      opts,
		trackers:  make(map[string]*trackerEntry),
	}
}

// Tracker returns the conversation's tracker, loading persisted progress when it is created
func (m *Manager) Tracker(ctx context.Context, conversationID, userID string) (*Tracker, error) {
	m.mu.Lock()
	entry, ok := m.trackers[conversationID]
	if !ok {
		entry = &trackerEntry{
			tracker: NewTracker(conversationID, userID, m.store, m.transport, m.opts),
			ready:   make(chan struct{}),
		}
		m.trackers[conversationID] = entry
	}
	m.mu.Unlock()

	if !ok {
		_, entry.err = entry.tracker.Load(ctx)
		close(entry.ready)
		if entry.err != nil {
			m.mu.Lock()
			if m.trackers[conversationID] == entry {
				delete(m.trackers, conversationID)
			}
			m.mu.Unlock()
		}
	}

	select {
	case <-entry.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.tracker, nil
}

// Reset deletes the conversation's progress and drops its tracker
func (m *Manager) Reset(ctx context.Context, conversationID, userID string) error {
	t, err := m.Tracker(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if err := t.Reset(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.trackers, conversationID)
	m.mu.Unlock()
	t.Close()
	return nil
}

// Close flushes pending saves of every tracker
func (m *Manager) Close() {
	m.mu.Lock()
	trackers := make([]*Tracker, 0, len(m.trackers))
	for _, entry := range m.trackers {
		trackers = append(trackers, entry.tracker)
	}
	m.trackers = make(map[string]*trackerEntry)
	m.mu.Unlock()

	for _, t := range trackers {
		t.Close()
	}
}
