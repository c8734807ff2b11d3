package handlers

import (
	"errors"
	"net/http"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/services"

	"github.com/gin-gonic/gin"
)

// AgentHandler answers with bare {agent} and {error, details} bodies, the shape agent editors expect
type AgentHandler struct {
	agentService services.AgentService
}

func NewAgentHandler(agentService services.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

func agentError(c *gin.Context, statusCode uint32, err error) {
	body := dtos.AgentErrorResponse{Error: err.Error()}
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		body.Error = svcErr.Message
		if svcErr.Cause != nil {
			body.Details = svcErr.Cause.Error()
		}
	}
	c.JSON(int(statusCode), body)
}

func (h *AgentHandler) List(c *gin.Context) {
	response, statusCode, err := h.agentService.List(c.Request.Context())
	if err != nil {
		agentError(c, statusCode, err)
		return
	}
	c.JSON(int(statusCode), response)
}

func (h *AgentHandler) Get(c *gin.Context) {
	response, statusCode, err := h.agentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		agentError(c, statusCode, err)
		return
	}
	c.JSON(int(statusCode), response)
}

func (h *AgentHandler) Create(c *gin.Context) {
	var req dtos.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.AgentErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	response, statusCode, err := h.agentService.Create(c.Request.Context(), &req)
	if err != nil {
		agentError(c, statusCode, err)
		return
	}
	c.JSON(int(statusCode), response)
}

// Update handles PUT /api/agents/:id
func (h *AgentHandler) Update(c *gin.Context) {
	var req dtos.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.AgentErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	response, statusCode, err := h.agentService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		agentError(c, statusCode, err)
		return
	}
	c.JSON(int(statusCode), response)
}
