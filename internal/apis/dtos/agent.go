package dtos

import "tutor-ai/internal/models"

type AgentRequest struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

type AgentResponse struct {
	Agent *models.Agent `json:"agent"`
}

type AgentListResponse struct {
	Agents []*models.Agent `json:"agents"`
}

type AgentErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
