package repository

import (
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) UpdateLastSeen(id uint) error {
	now := time.Now()
	return r.DB.Model(&model.User{}).Where("id = ?", id).Update("last_seen", &now).Error
}
