package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores users in the "user" table.
type UserDB struct {
	gorm *gorm.DB
}

// Create inserts a user. The id sequence assigns its ID.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	return insertUser(u.gorm.WithContext(ctx), user)
}

func insertUser(db *gorm.DB, user *model.User) error {
	user.ID = 0
	if err := db.Create(user).Error; err != nil {
		if conflict := userWriteError(err, user); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres: creating user: %w", err)
	}
	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := u.gorm.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %d: %w", id, err)
	}
	return &user, nil
}

func (u *UserDB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users := []model.User{}
	err := paginate(u.gorm.WithContext(ctx).Order("id"), opts).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}
	return users, nil
}

func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	res := u.gorm.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Select("username", "email").
		Updates(user)
	if res.Error != nil {
		if conflict := userWriteError(res.Error, user); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres: updating user %d: %w", user.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

func (u *UserDB) Delete(ctx context.Context, id int64) error {
	res := u.gorm.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("postgres: deleting user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// paginate applies ListOptions. A non-positive limit means no limit.
func paginate(db *gorm.DB, opts repository.ListOptions) *gorm.DB {
	if opts.Limit > 0 {
		db = db.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		db = db.Offset(opts.Offset)
	}
	return db
}
