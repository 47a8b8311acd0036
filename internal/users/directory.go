package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bookly-project/bookly/internal/apperr"
	"github.com/bookly-project/bookly/internal/models"
)

// Directory is the lookup surface the auth core depends on. It is the only
// source of truth for role and verification state; tokens never carry them.
type Directory struct {
	DB *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{DB: db}
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	return &user, nil
}

func (d *Directory) FindByUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := d.DB.WithContext(ctx).Where("uid = ?", uid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: find by uid: %w", err)
	}
	return &user, nil
}

func (d *Directory) Exists(ctx context.Context, email string) (bool, error) {
	_, err := d.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Directory) Create(ctx context.Context, user *models.User) error {
	if err := d.DB.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("users: create: %w", err)
	}
	return nil
}

// MarkVerified flips is_verified exactly once; re-verifying is a no-op.
func (d *Directory) MarkVerified(ctx context.Context, uid string) error {
	err := d.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("uid = ? AND is_verified = ?", uid, false).
		Update("is_verified", true).Error
	if err != nil {
		return fmt.Errorf("users: mark verified: %w", err)
	}
	return nil
}

func (d *Directory) CountByRole(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Role  string
		Total int64
	}
	var rows []row
	err := d.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("users: count by role: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Role] = r.Total
	}
	return counts, nil
}
