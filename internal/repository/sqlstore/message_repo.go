package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, errors.Wrap(err, "messageRepo.Create"))
	}
	return nil
}

func (r *messageRepository) ListBetween(ctx context.Context, a, b uuid.UUID) ([]*domain.Message, error) {
	messages := make([]*domain.Message, 0)
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at").
		Order("id").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, errors.Wrap(err, "messageRepo.ListBetween"))
	}
	return messages, nil
}
