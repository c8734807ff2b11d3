package repositories

import (
	"context"
	"tutor-ai/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkspaceRepository persists the tool-driven artifacts of a session
type WorkspaceRepository interface {
	ListFlashcards(ctx context.Context, sessionID string) ([]models.Flashcard, error)
	SaveFlashcard(ctx context.Context, card *models.Flashcard) error
	DeleteFlashcard(ctx context.Context, sessionID, id string) error
	ListSlides(ctx context.Context, sessionID string) ([]models.Slide, error)
	UpsertSlide(ctx context.Context, slide *models.Slide) error
	FindCV(ctx context.Context, sessionID string) (*models.CVDocument, error)
	UpsertCV(ctx context.Context, cv *models.CVDocument) error
}

type workspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) ListFlashcards(ctx context.Context, sessionID string) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&cards).Error
	return cards, err
}

func (r *workspaceRepository) SaveFlashcard(ctx context.Context, card *models.Flashcard) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"front", "back", "tags", "updated_at"}),
	}).Create(card).Error
}

func (r *workspaceRepository) DeleteFlashcard(ctx context.Context, sessionID, id string) error {
	result := r.db.WithContext(ctx).Where("session_id = ? AND id = ?", sessionID, id).Delete(&models.Flashcard{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *workspaceRepository) ListSlides(ctx context.Context, sessionID string) ([]models.Slide, error) {
	var slides []models.Slide
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&slides).Error
	return slides, err
}

func (r *workspaceRepository) UpsertSlide(ctx context.Context, slide *models.Slide) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}, {Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "image_url", "updated_at"}),
	}).Create(slide).Error
}

func (r *workspaceRepository) FindCV(ctx context.Context, sessionID string) (*models.CVDocument, error) {
	var cv models.CVDocument
	if err := r.db.WithContext(ctx).First(&cv, "session_id = ?", sessionID).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &cv, nil
}

func (r *workspaceRepository) UpsertCV(ctx context.Context, cv *models.CVDocument) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(cv).Error
}
