package repository

import (
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

// Upsert 按 (attempt_id, question_id) 写入作答，已存在则整行覆盖。
// 单条原子语句，自动保存高频重放时后写覆盖先写，不会产生重复行。
func (r *ResponseRepository) Upsert(resp *model.Response) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"selected_answer",
			"is_marked_for_review",
			"is_visited",
			"time_spent_seconds",
			"last_saved_at",
			"updated_at",
		}),
	}).Create(resp).Error
}

func (r *ResponseRepository) FindByAttemptAndQuestion(attemptID, questionID uint) (*model.Response, error) {
	var resp model.Response
	err := r.DB.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *ResponseRepository) ListByAttempt(attemptID uint) ([]model.Response, error) {
	var responses []model.Response
	err := r.DB.Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&responses).Error
	return responses, err
}
