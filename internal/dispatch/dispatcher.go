// Package dispatch applies completed tool results from the live message
// stream to a conversation's workspace (notes, flashcards, slides, CV).
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"tutor-ai/internal/transcript"
	"tutor-ai/pkg/logger"

	"go.uber.org/zap"
)

type Op string

const (
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpUpsert  Op = "upsert"
	OpInsert  Op = "insert"
	OpReplace Op = "replace"
)

// Effect is one applied workspace change
type Effect struct {
	Event      string      `json:"event"`
	SessionID  string      `json:"session_id"`
	ToolName   string      `json:"tool_name"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	Op         Op          `json:"op"`
	Data       interface{} `json:"data"`
}

// EffectSink receives every applied effect, e.g. for persistence or broadcasting
type EffectSink interface {
	Apply(ctx context.Context, effect Effect) error
}

// ErrStaleLoad is returned when a workspace load finishes after the conversation changed
var ErrStaleLoad = errors.New("workspace load superseded by a newer conversation")

// Dispatcher processes each completed tool invocation at most once per conversation
type Dispatcher struct {
	mu         sync.Mutex
	registry   *Registry
	sinks      []EffectSink
	now        func() time.Time
	log        *zap.Logger
	sessionID  string
	generation uint64
	cancelLoad context.CancelFunc
	seen       map[string]struct{}
	ws         *Workspace
}

func NewDispatcher(registry *Registry, sinks ...EffectSink) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		sinks:    sinks,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Named("dispatch"),
		seen:     make(map[string]struct{}),
		ws:       NewWorkspace(""),
	}
}

// Key identifies an invocation for deduplication
func Key(inv transcript.ToolInvocation) string {
	args, err := json.Marshal(inv.Args)
	if err != nil {
		args = []byte("null")
	}
	return fmt.Sprintf("%s-%s-%s-%s", inv.ToolName, inv.ToolCallID, args, inv.State)
}

// SessionID returns the conversation the dispatcher is bound to
func (d *Dispatcher) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// Switch binds the dispatcher to another conversation. Derived state is
// cleared and any in-flight load for the previous one is cancelled.
func (d *Dispatcher) Switch(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked(sessionID)
}

func (d *Dispatcher) resetLocked(sessionID string) {
	if d.cancelLoad != nil {
		d.cancelLoad()
		d.cancelLoad = nil
	}
	d.generation++
	d.sessionID = sessionID
	d.seen = make(map[string]struct{})
	d.ws = NewWorkspace(sessionID)
}

// Hydrate replaces the workspace with the persisted one. Events already applied
// in the meantime are replayed on top by the caller re-sending the message stream.
func (d *Dispatcher) Hydrate(ctx context.Context, loader WorkspaceLoader) error {
	d.mu.Lock()
	if d.cancelLoad != nil {
		d.cancelLoad()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	d.cancelLoad = cancel
	gen := d.generation
	sessionID := d.sessionID
	d.mu.Unlock()
	defer cancel()

	ws, err := loader.LoadWorkspace(loadCtx, sessionID)
	if err != nil {
		if errors.Is(loadCtx.Err(), context.Canceled) && ctx.Err() == nil {
			return ErrStaleLoad
		}
		return fmt.Errorf("failed to load workspace for %s: %w", sessionID, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation || loadCtx.Err() != nil {
		return ErrStaleLoad
	}
	if ws == nil {
		ws = NewWorkspace(sessionID)
	}
	ws.SessionID = sessionID
	d.ws = ws
	d.cancelLoad = nil
	return nil
}

// Process applies every not-yet-seen completed invocation of the given messages
// and returns the effects in application order.
func (d *Dispatcher) Process(ctx context.Context, messages []transcript.StreamMessage) []Effect {
	var invocations []transcript.ToolInvocation
	for _, msg := range messages {
		invocations = append(invocations, msg.ToolInvocations...)
	}
	return d.ProcessInvocations(ctx, invocations)
}

func (d *Dispatcher) ProcessInvocations(ctx context.Context, invocations []transcript.ToolInvocation) []Effect {
	d.mu.Lock()
	if d.sessionID == "" {
		d.mu.Unlock()
		return nil
	}
	var applied []Effect
	for _, inv := range invocations {
		if inv.State != transcript.StateResult || !truthy(inv.Result) {
			continue
		}
		key := Key(inv)
		if _, done := d.seen[key]; done {
			continue
		}
		d.seen[key] = struct{}{}

		handler, ok := d.registry.Lookup(inv.ToolName)
		if !ok {
			continue
		}
		effect, err := handler(d.ws, inv, d.now())
		if err != nil {
			d.log.Warn("tool result not applied",
				zap.String("session_id", d.sessionID),
				zap.String("tool", inv.ToolName),
				zap.Error(err))
			continue
		}
		if effect == nil {
			continue
		}
		effect.SessionID = d.sessionID
		effect.ToolName = inv.ToolName
		effect.ToolCallID = inv.ToolCallID
		applied = append(applied, *effect)
	}
	d.mu.Unlock()

	for _, effect := range applied {
		for _, sink := range d.sinks {
			if err := sink.Apply(ctx, effect); err != nil {
				d.log.Error("effect sink failed",
					zap.String("session_id", effect.SessionID),
					zap.String("event", effect.Event),
					zap.Error(err))
			}
		}
	}
	return applied
}

// Workspace returns a copy of the current workspace
func (d *Dispatcher) Workspace() *Workspace {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ws.Clone()
}

// Seen reports how many distinct invocations have been processed
func (d *Dispatcher) Seen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
