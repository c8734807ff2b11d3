package repositories

import (
	"context"
	"time"
	"tutor-ai/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScenarioRepository interface {
	Create(ctx context.Context, scenario *models.Scenario) error
	FindByID(ctx context.Context, id string) (*models.Scenario, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Scenario, error)
}

type scenarioRepository struct {
	db *gorm.DB
}

func NewScenarioRepository(db *gorm.DB) ScenarioRepository {
	return &scenarioRepository{db: db}
}

func (r *scenarioRepository) Create(ctx context.Context, scenario *models.Scenario) error {
	return r.db.WithContext(ctx).Create(scenario).Error
}

func (r *scenarioRepository) FindByID(ctx context.Context, id string) (*models.Scenario, error) {
	var scenario models.Scenario
	if err := r.db.WithContext(ctx).First(&scenario, "id = ?", id).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &scenario, nil
}

func (r *scenarioRepository) ListByUser(ctx context.Context, userID string) ([]*models.Scenario, error) {
	var scenarios []*models.Scenario
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&scenarios).Error
	return scenarios, err
}

// ScenarioProgressRepository stores one progress record per conversation
type ScenarioProgressRepository struct {
	db *gorm.DB
}

func NewScenarioProgressRepository(db *gorm.DB) *ScenarioProgressRepository {
	return &ScenarioProgressRepository{db: db}
}

// Load returns nil, nil when the conversation has no progress
func (r *ScenarioProgressRepository) Load(ctx context.Context, conversationID string) (*models.ScenarioProgress, error) {
	var progress models.ScenarioProgress
	if err := r.db.WithContext(ctx).First(&progress, "conversation_id = ?", conversationID).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &progress, nil
}

func (r *ScenarioProgressRepository) Save(ctx context.Context, progress *models.ScenarioProgress) error {
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "scenario", "current_step", "completed_steps", "triggered_actions", "exited", "updated_at"}),
	}).Create(progress).Error
}

func (r *ScenarioProgressRepository) Delete(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Delete(&models.ScenarioProgress{}).Error
}
