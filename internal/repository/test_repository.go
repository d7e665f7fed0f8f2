package repository

import (
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) Create(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) FindByID(id uint) (*model.Test, error) {
	var t model.Test
	if err := r.DB.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TestRepository) ListPublished(subject string, page, limit int) ([]model.Test, int64, error) {
	var tests []model.Test
	var total int64

	query := r.DB.Model(&model.Test{}).Where("is_published = ?", true)
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tests).Error
	return tests, total, err
}

func (r *TestRepository) HasEntitlement(userID, testID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Entitlement{}).
		Where("user_id = ? AND test_id = ?", userID, testID).
		Count(&count).Error
	return count > 0, err
}

func (r *TestRepository) CreateEntitlement(ent *model.Entitlement) error {
	return r.DB.Create(ent).Error
}
