package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zgai/chatlibrary/internal/models"
	"github.com/zgai/chatlibrary/internal/utils"
)

type ConversationRepository interface {
	InsertHistory(ctx context.Context, h *models.ConversationHistory) error
	GetHistory(ctx context.Context, id string) (*models.ConversationHistory, error)
	ListHistories(ctx context.Context, userID string) ([]models.ConversationHistory, error)
	TouchHistory(ctx context.Context, id string, at time.Time) error
	DeleteHistory(ctx context.Context, id string) error

	InsertMessage(ctx context.Context, m *models.ConversationMessage) error
	ListMessages(ctx context.Context, conversationID string) ([]models.ConversationMessage, error)
	DeleteMessages(ctx context.Context, conversationID string) error
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) InsertHistory(ctx context.Context, h *models.ConversationHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *conversationRepo) GetHistory(ctx context.Context, id string) (*models.ConversationHistory, error) {
	var row models.ConversationHistory
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *conversationRepo) ListHistories(ctx context.Context, userID string) ([]models.ConversationHistory, error) {
	var rows []models.ConversationHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) TouchHistory(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ConversationHistory{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

func (r *conversationRepo) DeleteHistory(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ConversationHistory{}).Error
}

func (r *conversationRepo) InsertMessage(ctx context.Context, m *models.ConversationMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *conversationRepo) ListMessages(ctx context.Context, conversationID string) ([]models.ConversationMessage, error) {
	var rows []models.ConversationMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) DeleteMessages(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&models.ConversationMessage{}).Error
}
