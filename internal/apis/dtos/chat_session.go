package dtos

import (
	"time"
	"tutor-ai/internal/dispatch"
	"tutor-ai/internal/models"
	"tutor-ai/internal/scenario"
	"tutor-ai/internal/transcript"
)

type CreateChatSessionRequest struct {
	UserID        string  `json:"user_id"`
	Title         string  `json:"title"`
	AgentName     string  `json:"agent_name"`
	VectorStoreID *string `json:"vector_store_id,omitempty"`
	IsPublic      bool    `json:"is_public"`
}

type UpdateChatSessionRequest struct {
	Title         *string `json:"title,omitempty"`
	AgentName     *string `json:"agent_name,omitempty"`
	VectorStoreID *string `json:"vector_store_id,omitempty"`
	IsPublic      *bool   `json:"is_public,omitempty"`
}

type ChatSessionResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	AgentName     string    `json:"agent_name"`
	VectorStoreID *string   `json:"vector_store_id,omitempty"`
	IsPublic      bool      `json:"is_public"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ChatSessionListResponse struct {
	Sessions []ChatSessionResponse `json:"sessions"`
	Total    int64                 `json:"total"`
}

type MessageListResponse struct {
	Messages []models.ChatMessage `json:"messages"`
}

type TodayMessageCountResponse struct {
	Count     int64 `json:"count"`
	Limit     int   `json:"limit"`
	Remaining int64 `json:"remaining"`
}

type SendMessageRequest struct {
	UserID        string `json:"user_id"`
	Content       string `json:"content" binding:"required"`
	AgentName     string `json:"agent_name"`
	StreamID      string `json:"stream_id"`
	VectorStoreID string `json:"vector_store_id"`
}

type SendMessageResponse struct {
	MessageID string `json:"message_id"`
	StreamID  string `json:"stream_id,omitempty"`
}

type SlideListResponse struct {
	Slides []models.Slide `json:"slides"`
}

type FlashcardListResponse struct {
	Flashcards []models.Flashcard `json:"flashcards"`
}

// WorkspaceResponse is everything a client needs to render one session
type WorkspaceResponse struct {
	Session    ChatSessionResponse    `json:"session"`
	Transcript *transcript.Transcript `json:"transcript"`
	Workspace  *dispatch.Workspace    `json:"workspace"`
	Scenario   *scenario.State        `json:"scenario,omitempty"`
}
