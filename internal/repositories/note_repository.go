package repositories

import (
	"context"
	"tutor-ai/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NoteRepository interface {
	Find(ctx context.Context, userID, sessionID string) (*models.Note, error)
	FindBySession(ctx context.Context, sessionID string) (*models.Note, error)
	Upsert(ctx context.Context, note *models.Note) error
}

type noteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Find(ctx context.Context, userID, sessionID string) (*models.Note, error) {
	var note models.Note
	err := r.db.WithContext(ctx).First(&note, "user_id = ? AND session_id = ?", userID, sessionID).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &note, nil
}

func (r *noteRepository) FindBySession(ctx context.Context, sessionID string) (*models.Note, error) {
	var note models.Note
	err := r.db.WithContext(ctx).Order("updated_at DESC").First(&note, "session_id = ?", sessionID).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &note, nil
}

func (r *noteRepository) Upsert(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(note).Error
}
