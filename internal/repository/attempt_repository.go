package repository

import (
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindActiveByUserAndTest 查找用户在某试卷上未交卷的考试（续考入口）
func (r *AttemptRepository) FindActiveByUserAndTest(userID, testID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, model.AttemptInProgress).
		Order("id DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.DB.Model(&model.Attempt{}).Where("id = ?", id).Updates(fields).Error
}

// TransitionStatus 带前置状态守卫的状态推进。并发提交时只有一个调用能赢，
// 返回值表示本次调用是否真的完成了转移。
func (r *AttemptRepository) TransitionStatus(id uint, from, to model.AttemptStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.DB.Model(&model.Attempt{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *AttemptRepository) ListByUser(userID uint, testID uint, page, limit int) ([]model.Attempt, int64, error) {
	var attempts []model.Attempt
	var total int64

	query := r.DB.Model(&model.Attempt{}).Where("user_id = ?", userID)
	if testID != 0 {
		query = query.Where("test_id = ?", testID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&attempts).Error
	return attempts, total, err
}

// ListFinishedScores 返回试卷所有已评分考试的得分，百分位和聚合统计都在这上面算
func (r *AttemptRepository) ListFinishedScores(testID uint) ([]float64, error) {
	var scores []float64
	err := r.DB.Model(&model.Attempt{}).
		Where("test_id = ? AND status IN ? AND score IS NOT NULL",
			testID, []model.AttemptStatus{model.AttemptSubmitted, model.AttemptEvaluated}).
		Pluck("score", &scores).Error
	return scores, err
}

// FindLatestFinishedByUserAndTest 用户在某试卷上最近一次已评分的考试
func (r *AttemptRepository) FindLatestFinishedByUserAndTest(userID, testID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Where("user_id = ? AND test_id = ? AND status IN ?",
		userID, testID, []model.AttemptStatus{model.AttemptSubmitted, model.AttemptEvaluated}).
		Order("id DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListStuckProcessing 卡在 processing 超过阈值的考试（评分任务丢失的征兆）
func (r *AttemptRepository) ListStuckProcessing(before time.Time, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("status = ? AND updated_at < ?", model.AttemptProcessing, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountStuckProcessing(before time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("status = ? AND updated_at < ?", model.AttemptProcessing, before).
		Count(&count).Error
	return count, err
}
