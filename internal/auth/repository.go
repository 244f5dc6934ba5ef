// internal/auth/repository.go
package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Employee, error)
	GetByID(ctx context.Context, id int64) (*Employee, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Employee, error) {
	var employee Employee
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Employee, error) {
	var employee Employee
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	result := r.db.WithContext(ctx).Model(&Employee{}).
		Where("id = ?", id).
		Update("password_hash", hash)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrEmployeeNotFound
	}

	return nil
}
