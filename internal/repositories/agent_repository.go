package repositories

import (
	"context"
	"time"
	"tutor-ai/internal/models"

	"gorm.io/gorm"
)

type AgentRepository interface {
	List(ctx context.Context) ([]*models.Agent, error)
	FindByID(ctx context.Context, id string) (*models.Agent, error)
	Create(ctx context.Context, agent *models.Agent) error
	Update(ctx context.Context, id, name, instructions string) (*models.Agent, error)
}

type agentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) List(ctx context.Context) ([]*models.Agent, error) {
	var agents []*models.Agent
	err := r.db.WithContext(ctx).Order("name ASC").Find(&agents).Error
	return agents, err
}

// FindByID returns nil, nil when the agent does not exist
func (r *agentRepository) FindByID(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &agent, nil
}

func (r *agentRepository) Create(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

func (r *agentRepository) Update(ctx context.Context, id, name, instructions string) (*models.Agent, error) {
	result := r.db.WithContext(ctx).Model(&models.Agent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":         name,
		"instructions": instructions,
		"updated_at":   time.Now().UTC(),
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}
