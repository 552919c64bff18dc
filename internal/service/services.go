package service

import (
	"github.com/dom/duo-chat/internal/media"
	"github.com/dom/duo-chat/internal/repository"
	"github.com/dom/duo-chat/internal/session"
	"go.uber.org/zap"
)

type Services struct {
	Auth    *AuthService
	Message *MessageService
}

func NewServices(repos *repository.Repositories, tokens *session.Manager, uploader media.Uploader, presence Presence, logger *zap.Logger) *Services {
	return &Services{
		Auth:    NewAuthService(repos.User, tokens, uploader, logger),
		Message: NewMessageService(repos.Message, repos.User, uploader, presence, logger),
	}
}
