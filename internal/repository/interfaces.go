package repository

import (
	"context"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListExcept(ctx context.Context, id uuid.UUID) ([]*domain.User, error)
	UpdateProfilePic(ctx context.Context, id uuid.UUID, url string) (*domain.User, error)
}

// MessageRepository is the append-only message store.
type MessageRepository interface {
	// Create assigns ID and CreatedAt when unset and persists the message.
	Create(ctx context.Context, message *domain.Message) error
	// ListBetween returns every message exchanged between a and b in either
	// direction, oldest first.
	ListBetween(ctx context.Context, a, b uuid.UUID) ([]*domain.Message, error)
}

type Repositories struct {
	User    UserRepository
	Message MessageRepository
}
