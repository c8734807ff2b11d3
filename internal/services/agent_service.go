package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/models"
	"tutor-ai/internal/repositories"
)

var (
	errAgentIDRequired     = errors.New("agent id is required")
	errAgentFieldsRequired = errors.New("name and instructions are required")
	errAgentNotFound       = errors.New("agent not found")
)

// ServiceError carries a user-facing message plus the underlying cause
type ServiceError struct {
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

type AgentService interface {
	List(ctx context.Context) (*dtos.AgentListResponse, uint32, error)
	Get(ctx context.Context, id string) (*dtos.AgentResponse, uint32, error)
	Create(ctx context.Context, req *dtos.AgentRequest) (*dtos.AgentResponse, uint32, error)
	Update(ctx context.Context, id string, req *dtos.AgentRequest) (*dtos.AgentResponse, uint32, error)
}

type agentService struct {
	agentRepo repositories.AgentRepository
}

func NewAgentService(agentRepo repositories.AgentRepository) AgentService {
	return &agentService{agentRepo: agentRepo}
}

func (s *agentService) List(ctx context.Context) (*dtos.AgentListResponse, uint32, error) {
	agents, err := s.agentRepo.List(ctx)
	if err != nil {
		return nil, http.StatusInternalServerError, &ServiceError{Message: "Failed to list agents", Cause: err}
	}
	if agents == nil {
		agents = []*models.Agent{}
	}
	return &dtos.AgentListResponse{Agents: agents}, http.StatusOK, nil
}

func (s *agentService) Get(ctx context.Context, id string) (*dtos.AgentResponse, uint32, error) {
	if strings.TrimSpace(id) == "" {
		return nil, http.StatusBadRequest, errAgentIDRequired
	}
	agent, err := s.agentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, http.StatusInternalServerError, &ServiceError{Message: "Failed to fetch agent", Cause: err}
	}
	if agent == nil {
		return nil, http.StatusNotFound, errAgentNotFound
	}
	return &dtos.AgentResponse{Agent: agent}, http.StatusOK, nil
}

func (s *agentService) Create(ctx context.Context, req *dtos.AgentRequest) (*dtos.AgentResponse, uint32, error) {
	name, instructions := strings.TrimSpace(req.Name), strings.TrimSpace(req.Instructions)
	if name == "" || instructions == "" {
		return nil, http.StatusBadRequest, errAgentFieldsRequired
	}
	agent := models.NewAgent(name, instructions)
	if err := s.agentRepo.Create(ctx, agent); err != nil {
		return nil, http.StatusInternalServerError, &ServiceError{Message: "Failed to create agent", Cause: err}
	}
	return &dtos.AgentResponse{Agent: agent}, http.StatusCreated, nil
}

// Update replaces an agent's name and instructions
func (s *agentService) Update(ctx context.Context, id string, req *dtos.AgentRequest) (*dtos.AgentResponse, uint32, error) {
	if strings.TrimSpace(id) == "" {
		return nil, http.StatusBadRequest, errAgentIDRequired
	}
	name, instructions := strings.TrimSpace(req.Name), strings.TrimSpace(req.Instructions)
	if name == "" || instructions == "" {
		return nil, http.StatusBadRequest, errAgentFieldsRequired
	}

	agent, err := s.agentRepo.Update(ctx, id, name, instructions)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && agent == nil) {
		return nil, http.StatusNotFound, errAgentNotFound
	}
	if err != nil {
		return nil, http.StatusInternalServerError, &ServiceError{Message: "Failed to update agent", Cause: err}
	}
	return &dtos.AgentResponse{Agent: agent}, http.StatusOK, nil
}
