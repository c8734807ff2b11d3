// Package agentbackend talks to the external agent orchestration service.
package agentbackend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"tutor-ai/pkg/logger"

	"go.uber.org/zap"
)

// Event types emitted by the chat stream
const (
	EventTextDelta      = "text-delta"
	EventToolInvocation = "tool-invocation"
	EventAgentSwitch    = "agent-switch"
	EventError          = "error"
	EventDone           = "done"
)

// ChatRequest is one user turn forwarded to the agents
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	AgentName      string `json:"agent_name,omitempty"`
	Message        string `json:"message"`
	VectorStoreID  string `json:"vector_store_id,omitempty"`
}

// Tool invocation states
const (
	ToolStateCall   = "call"
	ToolStateResult = "result"
)

// ToolInvocation is a tool call reported by the agents, with its result once completed
type ToolInvocation struct {
	ToolName   string                 `json:"toolName"`
	ToolCallID string                 `json:"toolCallId,omitempty"`
	Args       map[string]interface{} `json:"args"`
	Result     interface{}            `json:"result,omitempty"`
	State      string                 `json:"state"`
}

// Event is one frame of the chat stream
type Event struct {
	Type           string          `json:"type"`
	MessageID      string          `json:"message_id,omitempty"`
	AgentName      string          `json:"agent_name,omitempty"`
	Content        string          `json:"content,omitempty"`
	ToolInvocation *ToolInvocation `json:"tool_invocation,omitempty"`
	Error          string          `json:"error,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured backend origin
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Forward sends a request to path on the backend and returns the raw response.
// The caller owns the response body.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header) (*http.Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend request: %w", err)
	}
	for _, key := range []string{"Content-Type", "Content-Length", "Authorization", "Accept"} {
		if v := header.Get(key); v != "" {
			req.Header.Set(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent backend %s %s: %w", method, path, err)
	}
	return resp, nil
}

// StreamChat posts a turn and calls onEvent for every frame until the stream ends.
// Frames are server-sent events or bare JSON lines.
func (c *Client) StreamChat(ctx context.Context, chatReq ChatRequest, onEvent func(Event) error) error {
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return err
	}

	// the stream can outlive the client timeout
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent backend chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	log := logger.Named("agentbackend")
	frames := newFrameReader(resp.Body)
	for {
		frame, err := frames.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			if ctx.Err() == nil {
				return fmt.Errorf("reading chat stream: %w", err)
			}
			return ctx.Err()
		}
		if frame == "" || frame == "[DONE]" {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(frame), &ev); err != nil {
			log.Warn("skipping malformed stream frame", zap.String("conversation_id", chatReq.ConversationID), zap.Error(err))
			continue
		}
		if err := onEvent(ev); err != nil {
			return err
		}
		if ev.Type == EventDone {
			return nil
		}
	}
	return ctx.Err()
}

// frameReader splits a chat stream into frames. Consecutive "data:" lines of one
// server-sent event are joined with newlines; a bare JSON line is a frame of its own.
type frameReader struct {
	scanner *bufio.Scanner
}

func newFrameReader(r io.Reader) *frameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &frameReader{scanner: scanner}
}

func (f *frameReader) next() (string, error) {
	var data []string
	inEvent := false
	for f.scanner.Scan() {
		line := strings.TrimRight(f.scanner.Text(), "\r")
		switch {
		case line == "":
			if inEvent {
				return strings.Join(data, "\n"), nil
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "data:"):
			inEvent = true
			value := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(value, " "))
		case strings.HasPrefix(line, "event:"), strings.HasPrefix(line, "id:"), strings.HasPrefix(line, "retry:"):
			inEvent = true
		case !inEvent:
			return strings.TrimSpace(line), nil
		}
	}
	if err := f.scanner.Err(); err != nil {
		return "", err
	}
	if inEvent {
		return strings.Join(data, "\n"), nil
	}
	return "", io.EOF
}

// StatusError is a non-2xx backend reply
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent backend returned %d: %s", e.StatusCode, e.Body)
}
