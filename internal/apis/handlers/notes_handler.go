package handlers

import (
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/services"

	"github.com/gin-gonic/gin"
)

type NotesHandler struct {
	notesService services.NotesService
}

func NewNotesHandler(notesService services.NotesService) *NotesHandler {
	return &NotesHandler{notesService: notesService}
}

// @Summary Get the note of a session
// @Param user_id query string true "User ID"
// @Param session_id query string true "Chat session ID"

func (h *NotesHandler) Get(c *gin.Context) {
	response, statusCode, err := h.notesService.Get(c.Request.Context(), userID(c, ""), c.Query("session_id"))
	respond(c, response, statusCode, err)
}

// @Summary Save the note of a session
// @Description Accepts either the full content or its paragraphs
// @Accept json
// @Param noteRequest body dtos.NoteRequest true "Note"

func (h *NotesHandler) Save(c *gin.Context) {
	var req dtos.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	response, statusCode, err := h.notesService.Save(c.Request.Context(), &req)
	respond(c, response, statusCode, err)
}
