package dtos

import (
	"time"
	"tutor-ai/internal/notes"
)

type NoteRequest struct {
	UserID     string            `json:"user_id"`
	SessionID  string            `json:"session_id"`
	Content    *string           `json:"content,omitempty"`
	Paragraphs []notes.Paragraph `json:"paragraphs,omitempty"`
}

type NoteResponse struct {
	UserID     string            `json:"user_id"`
	SessionID  string            `json:"session_id"`
	Content    string            `json:"content"`
	Paragraphs []notes.Paragraph `json:"paragraphs"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
}
