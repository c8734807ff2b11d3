package handlers

import (
	"errors"
	"io"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/scenario"
	"tutor-ai/internal/services"

	"github.com/gin-gonic/gin"
)

type ScenarioHandler struct {
	scenarioService services.ScenarioService
}

func NewScenarioHandler(scenarioService services.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{scenarioService: scenarioService}
}

func (h *ScenarioHandler) List(c *gin.Context) {
	response, statusCode, err := h.scenarioService.List(c.Request.Context(), userID(c, ""))
	respond(c, response, statusCode, err)
}

// @Summary Generate a scenario with an LLM
// @Accept json
// @Param generateScenarioRequest body dtos.GenerateScenarioRequest true "Goal and constraints"

func (h *ScenarioHandler) Generate(c *gin.Context) {
	var req dtos.GenerateScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	response, statusCode, err := h.scenarioService.Generate(c.Request.Context(), &req)
	respond(c, response, statusCode, err)
}

func (h *ScenarioHandler) Save(c *gin.Context) {
	var req dtos.SaveScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	response, statusCode, err := h.scenarioService.Save(c.Request.Context(), &req)
	respond(c, response, statusCode, err)
}

func (h *ScenarioHandler) Progress(c *gin.Context) {
	state, statusCode, err := h.scenarioService.Progress(c.Request.Context(), c.Param("conversationId"), userID(c, ""))
	respond(c, state, statusCode, err)
}

// @Summary Start a scenario in a conversation
// @Accept json
// @Param conversationId path string true "Conversation ID"
// @Param selectScenarioRequest body dtos.SelectScenarioRequest true "Scenario id or inline scenario"

func (h *ScenarioHandler) Select(c *gin.Context) {
	var req dtos.SelectScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	state, statusCode, err := h.scenarioService.Select(c.Request.Context(), c.Param("conversationId"), &req)
	respond(c, state, statusCode, err)
}

func (h *ScenarioHandler) Trigger(c *gin.Context) {
	var req dtos.TriggerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	state, statusCode, err := h.scenarioService.Trigger(c.Request.Context(), c.Param("conversationId"), &req)
	respond(c, state, statusCode, err)
}

// progressUser reads the optional {user_id} body of the progress transitions
func progressUser(c *gin.Context) (string, error) {
	var req dtos.ScenarioProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return userID(c, req.UserID), nil
}

func (h *ScenarioHandler) transition(c *gin.Context, op func(conversationID, userID string) (*scenario.State, uint32, error)) {
	uid, err := progressUser(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	state, statusCode, err := op(c.Param("conversationId"), uid)
	respond(c, state, statusCode, err)
}

func (h *ScenarioHandler) Advance(c *gin.Context) {
	h.transition(c, func(conversationID, userID string) (*scenario.State, uint32, error) {
		return h.scenarioService.Advance(c.Request.Context(), conversationID, userID)
	})
}

func (h *ScenarioHandler) Exit(c *gin.Context) {
	h.transition(c, func(conversationID, userID string) (*scenario.State, uint32, error) {
		return h.scenarioService.Exit(c.Request.Context(), conversationID, userID)
	})
}

func (h *ScenarioHandler) Continue(c *gin.Context) {
	h.transition(c, func(conversationID, userID string) (*scenario.State, uint32, error) {
		return h.scenarioService.Continue(c.Request.Context(), conversationID, userID)
	})
}

// Reset discards the progress of a conversation
func (h *ScenarioHandler) Reset(c *gin.Context) {
	statusCode, err := h.scenarioService.Reset(c.Request.Context(), c.Param("conversationId"), userID(c, ""))
	if err != nil {
		respond(c, nil, statusCode, err)
		return
	}
	c.Status(int(statusCode))
}
