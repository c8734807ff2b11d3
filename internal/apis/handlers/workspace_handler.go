package handlers

import (
	"tutor-ai/internal/services"

	"github.com/gin-gonic/gin"
)

type WorkspaceHandler struct {
	workspaceService services.WorkspaceService
}

func NewWorkspaceHandler(workspaceService services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

// @Summary Session workspace
// @Description Transcript, note paragraphs, flashcards, slides and scenario progress of a session
// @Param id path string true "Chat session ID"

func (h *WorkspaceHandler) Get(c *gin.Context) {
	response, statusCode, err := h.workspaceService.GetWorkspace(c.Request.Context(), c.Param("id"))
	respond(c, response, statusCode, err)
}

func (h *WorkspaceHandler) ListSlides(c *gin.Context) {
	response, statusCode, err := h.workspaceService.ListSlides(c.Request.Context(), c.Param("id"))
	respond(c, response, statusCode, err)
}

func (h *WorkspaceHandler) ListFlashcards(c *gin.Context) {
	response, statusCode, err := h.workspaceService.ListFlashcards(c.Request.Context(), c.Param("id"))
	respond(c, response, statusCode, err)
}
