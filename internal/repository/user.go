package repository

import (
	"context"
	"errors"

	"fedisync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByUsernameAndHost(ctx context.Context, username, host string) (*model.User, error)
}

func NewUserRepository(r *Repository) UserRepository {
	return &userRepository{Repository: r}
}

type userRepository struct {
	*Repository
}

func (r *userRepository) Upsert(ctx context.Context, user *model.User) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}, {Name: "host"}},
		DoNothing: true,
	}).Create(user).Error
}

func (r *userRepository) GetByUsernameAndHost(ctx context.Context, username, host string) (*model.User, error) {
	var user model.User
	if err := r.DB(ctx).Where("username = ? AND host = ?", username, host).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
