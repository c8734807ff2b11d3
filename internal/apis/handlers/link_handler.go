package handlers

import (
	"tutor-ai/internal/services"

	"github.com/gin-gonic/gin"
)

// LinkHandler serves link previews and launch parameter parsing
type LinkHandler struct {
	previewService services.LinkPreviewService
	launchService  services.LaunchService
}

func NewLinkHandler(previewService services.LinkPreviewService, launchService services.LaunchService) *LinkHandler {
	return &LinkHandler{previewService: previewService, launchService: launchService}
}

// @Summary Preview a link
// @Param url query string true "Absolute http(s) URL"

func (h *LinkHandler) Preview(c *gin.Context) {
	response, statusCode, err := h.previewService.Preview(c.Request.Context(), c.Query("url"))
	respond(c, response, statusCode, err)
}

// @Summary Parse launch parameters
// @Description Recovers parameters from mangled or repeatedly encoded launch URLs
// @Param q query string false "Raw launch URL or query; defaults to this request's query"

func (h *LinkHandler) Launch(c *gin.Context) {
	raw := c.Query("q")
	if raw == "" {
		raw = c.Request.URL.RawQuery
	}
	response, statusCode, err := h.launchService.Parse(raw)
	respond(c, response, statusCode, err)
}
