package service

import (
	"errors"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/repository"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TestService struct {
	TestRepo     *repository.TestRepository
	QuestionRepo *repository.QuestionRepository
}

func NewTestService(testRepo *repository.TestRepository, questionRepo *repository.QuestionRepository) *TestService {
	return &TestService{TestRepo: testRepo, QuestionRepo: questionRepo}
}

// TestDetail 试卷详情页数据（不含题目，题目跟随考试状态下发）
type TestDetail struct {
	Test          *model.Test         `json:"test"`
	Sections      []model.TestSection `json:"sections,omitempty"`
	QuestionCount int                 `json:"questionCount"`
}

func (s *TestService) ListPublished(subject string, page, limit int) ([]model.Test, int64, error) {
	return s.TestRepo.ListPublished(subject, page, limit)
}

func (s *TestService) GetDetail(testID uint) (*TestDetail, error) {
	test, err := s.TestRepo.FindByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}

	count, err := s.QuestionRepo.CountByTest(testID)
	if err != nil {
		return nil, err
	}

	sections, err := test.ParseSections()
	if err != nil {
		logger.Log.Warn("Corrupt sections on test", zap.Uint("testId", testID), zap.Error(err))
	}

	return &TestDetail{
		Test:          test,
		Sections:      sections,
		QuestionCount: int(count),
	}, nil
}
