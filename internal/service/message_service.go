package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/dom/duo-chat/internal/media"
	"github.com/dom/duo-chat/internal/repository"
	"github.com/dom/duo-chat/internal/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Presence resolves a user id to its live connection, if any.
type Presence interface {
	Lookup(userID uuid.UUID) (websocket.Conn, bool)
}

// MessageService persists direct messages and pushes them to an online receiver.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	uploader    media.Uploader
	presence    Presence
	logger      *zap.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	uploader media.Uploader,
	presence Presence,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		uploader:    uploader,
		presence:    presence,
		logger:      logger,
	}
}

type SendMessageInput struct {
	Text  string
	Image string
}

// Send stores a message from sender to receiver and, if the receiver is online,
// pushes it to them once. A failed push is logged and not retried; the stored
// message is returned either way.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.Text) == "" && input.Image == "" {
		return nil, domain.ErrEmptyMessage
	}
	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}

	message := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       input.Text,
	}

	if input.Image != "" {
		asset, err := s.uploader.Upload(ctx, input.Image)
		if err != nil {
			s.logger.Warn("image upload failed",
				zap.Stringer("sender_id", senderID), zap.Error(err))
			return nil, err
		}
		meta, err := json.Marshal(asset.Info())
		if err != nil {
			return nil, err
		}
		message.Image = asset.URL
		message.ImageMeta = meta
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	s.push(message)
	return message, nil
}

func (s *MessageService) push(message *domain.Message) {
	conn, ok := s.presence.Lookup(message.ReceiverID)
	if !ok {
		return
	}

	event, err := websocket.NewMessage(websocket.MessageTypeNewMessage, message)
	if err != nil {
		s.logger.Error("failed to build message event", zap.Stringer("message_id", message.ID), zap.Error(err))
		return
	}

	if err := conn.Send(event); err != nil {
		s.logger.Warn("message push failed",
			zap.Stringer("message_id", message.ID),
			zap.Stringer("receiver_id", message.ReceiverID),
			zap.Error(err),
		)
	}
}

// ListBetween returns the conversation between me and other, oldest first.
func (s *MessageService) ListBetween(ctx context.Context, me, other uuid.UUID) ([]*domain.Message, error) {
	return s.messageRepo.ListBetween(ctx, me, other)
}

// ListContacts returns every user except me.
func (s *MessageService) ListContacts(ctx context.Context, me uuid.UUID) ([]*domain.User, error) {
	return s.userRepo.ListExcept(ctx, me)
}
