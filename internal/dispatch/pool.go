package dispatch

import (
	"context"
	"errors"
	"sync"
)

type poolEntry struct {
	dispatcher *Dispatcher
	ready      chan struct{}
	err        error
}

// Pool holds one hydrated dispatcher per conversation
type Pool struct {
	mu       sync.Mutex
	registry *Registry
	loader   WorkspaceLoader
	sinks    []EffectSink
	entries  map[string]*poolEntry
}

func NewPool(registry *Registry, loader WorkspaceLoader, sinks ...EffectSink) *Pool {
	return &Pool{
		registry: registry,
		loader:   loader,
		sinks:    sinks,
		entries:  make(map[string]*poolEntry),
	}
}

// Get returns the conversation's dispatcher, hydrating it on first use.
// Concurrent callers wait for the same hydration.
func (p *Pool) Get(ctx context.Context, sessionID string) (*Dispatcher, error) {
	p.mu.Lock()
	entry, ok := p.entries[sessionID]
	if !ok {
		d := NewDispatcher(p.registry, p.sinks...)
		d.Switch(sessionID)
		entry = &poolEntry{dispatcher: d, ready: make(chan struct{})}
		p.entries[sessionID] = entry
	}
	p.mu.Unlock()

	if !ok {
		if p.loader != nil {
			entry.err = entry.dispatcher.Hydrate(ctx, p.loader)
		}
		close(entry.ready)
		if entry.err != nil {
			p.remove(sessionID, entry)
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
	return entry.dispatcher, nil
}

// Forget drops the conversation's dispatcher and cancels its pending load
func (p *Pool) Forget(sessionID string) {
	p.mu.Lock()
	entry, ok := p.entries[sessionID]
	delete(p.entries, sessionID)
	p.mu.Unlock()
	if ok {
		entry.dispatcher.Switch("")
	}
}

// Refresh reloads a live dispatcher's workspace from storage, keeping its seen set.
// Conversations without a live dispatcher are left alone.
func (p *Pool) Refresh(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	entry, ok := p.entries[sessionID]
	p.mu.Unlock()
	if !ok || p.loader == nil {
		return nil
	}

	select {
	case <-entry.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	if entry.err != nil {
		return nil
	}
	err := entry.dispatcher.Hydrate(ctx, p.loader)
	if errors.Is(err, ErrStaleLoad) {
		return nil
	}
	return err
}

func (p *Pool) remove(sessionID string, entry *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entries[sessionID] == entry {
		delete(p.entries, sessionID)
	}
}

// Len reports how many conversations have a live dispatcher
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
