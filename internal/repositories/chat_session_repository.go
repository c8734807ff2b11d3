package repositories

import (
	"context"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/models"

	"gorm.io/gorm"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	FindByID(ctx context.Context, id string) (*models.ChatSession, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.ChatSession, int64, error)
	ListPublic(ctx context.Context, limit int) ([]*models.ChatSession, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*models.ChatSession, error)
	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	FindMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

type chatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) ChatSessionRepository {
	return &chatSessionRepository{db: db}
}

func (r *chatSessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *chatSessionRepository) FindByID(ctx context.Context, id string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &session, nil
}

func (r *chatSessionRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.ChatSession, int64, error) {
	var sessions []*models.ChatSession
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ChatSession{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *chatSessionRepository) ListPublic(ctx context.Context, limit int) ([]*models.ChatSession, error) {
	var sessions []*models.ChatSession
	err := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("updated_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *chatSessionRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.ChatSession, error) {
	updates["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.ChatSession{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *chatSessionRepository) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatSession{}).
			Where("id = ?", message.SessionID).
			Update("updated_at", message.CreatedAt).Error
	})
}

// FindMessages returns the session's raw log in insertion order
func (r *chatSessionRepository) FindMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *chatSessionRepository) CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Joins("JOIN chat_sessions ON chat_sessions.id = chat_messages.session_id").
		Where("chat_sessions.user_id = ? AND chat_messages.role = ? AND chat_messages.created_at >= ?",
			userID, string(constants.MessageRoleUser), since).
		Count(&count).Error
	return count, err
}
