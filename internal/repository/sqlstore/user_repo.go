package sqlstore

import (
	"context"
	"time"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return errors.Wrap(err, "userRepo.Create")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "userRepo.GetByID")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, notFound(err, "userRepo.GetByEmail")
	}
	return &user, nil
}

func (r *userRepository) ListExcept(ctx context.Context, id uuid.UUID) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.WithContext(ctx).
		Where("id <> ?", id).
		Order("full_name").
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.ListExcept")
	}
	return users, nil
}

func (r *userRepository) UpdateProfilePic(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"profile_pic": url,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "userRepo.UpdateProfilePic")
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

// notFound maps gorm's missing-row error onto the domain sentinel.
func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrUserNotFound
	}
	return errors.Wrap(err, op)
}
