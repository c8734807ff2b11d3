package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/models"
	"tutor-ai/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgentRepo struct {
	mu     sync.Mutex
	agents map[string]*models.Agent
	err    error
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: make(map[string]*models.Agent)}
}

func (r *fakeAgentRepo) List(context.Context) ([]*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*models.Agent
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAgentRepo) FindByID(_ context.Context, id string) (*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.agents[id], nil
}

func (r *fakeAgentRepo) Create(_ context.Context, agent *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) Update(_ context.Context, id, name, instructions string) (*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	a, ok := r.agents[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	a.Name, a.Instructions = name, instructions
	return a, nil
}

func TestAgentUpdate(t *testing.T) {
	repo := newFakeAgentRepo()
	existing := models.NewAgent("Tutor", "Be kind")
	repo.agents[existing.ID] = existing
	svc := NewAgentService(repo)
	ctx := context.Background()

	tests := []struct {
		name   string
		id     string
		req    dtos.AgentRequest
		status uint32
		err    error
	}{
		{"missing id", " ", dtos.AgentRequest{Name: "a", Instructions: "b"}, http.StatusBadRequest, errAgentIDRequired},
		{"missing fields", existing.ID, dtos.AgentRequest{Name: "a"}, http.StatusBadRequest, errAgentFieldsRequired},
		{"absent", "nope", dtos.AgentRequest{Name: "a", Instructions: "b"}, http.StatusNotFound, errAgentNotFound},
		{"ok", existing.ID, dtos.AgentRequest{Name: " Coach ", Instructions: "Be strict"}, http.StatusOK, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, status, err := svc.Update(ctx, tt.id, &tt.req)
			assert.Equal(t, tt.status, status)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Coach", resp.Agent.Name)
		})
	}
}

func TestAgentUpdate_StoreFailure(t *testing.T) {
	repo := newFakeAgentRepo()
	repo.err = errBoom
	svc := NewAgentService(repo)

	_, status, err := svc.Update(context.Background(), "a1", &dtos.AgentRequest{Name: "a", Instructions: "b"})
	assert.Equal(t, uint32(http.StatusInternalServerError), status)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "Failed to update agent", svcErr.Message)
	assert.ErrorIs(t, err, errBoom)
}

func TestAgentCreateGetList(t *testing.T) {
	svc := NewAgentService(newFakeAgentRepo())
	ctx := context.Background()

	created, status, err := svc.Create(ctx, &dtos.AgentRequest{Name: "Tutor", Instructions: "Help"})
	require.NoError(t, err)
	assert.Equal(t, uint32(http.StatusCreated), status)

	got, _, err := svc.Get(ctx, created.Agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tutor", got.Agent.Name)

	_, status, _ = svc.Get(ctx, "nope")
	assert.Equal(t, uint32(http.StatusNotFound), status)

	list, _, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Agents, 1)
}
