package repository

import (
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) CreateBatch(questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.Create(&questions).Error
}

// ListByTest 按试卷内顺序返回整张卷子的题目
func (r *QuestionRepository) ListByTest(testID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("test_id = ?", testID).
		Order("`order` ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) CountByTest(testID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}
