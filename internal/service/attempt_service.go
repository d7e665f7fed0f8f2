package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/queue"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/repository"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AttemptService struct {
	AttemptRepo  *repository.AttemptRepository
	ResponseRepo *repository.ResponseRepository
	TestRepo     *repository.TestRepository
	QuestionRepo *repository.QuestionRepository
	Dispatcher   queue.Dispatcher
}

func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	responseRepo *repository.ResponseRepository,
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	dispatcher queue.Dispatcher,
) *AttemptService {
	return &AttemptService{
		AttemptRepo:  attemptRepo,
		ResponseRepo: responseRepo,
		TestRepo:     testRepo,
		QuestionRepo: questionRepo,
		Dispatcher:   dispatcher,
	}
}

// StudentQuestion 考试中下发给考生的题目视图，不带标准答案
type StudentQuestion struct {
	ID            uint                   `json:"id"`
	Type          model.QuestionType     `json:"type"`
	Content       string                 `json:"content"`
	Options       []model.QuestionOption `json:"options,omitempty"`
	Marks         float64                `json:"marks"`
	NegativeMarks float64                `json:"negativeMarks"`
	SectionID     string                 `json:"sectionId"`
	Order         int                    `json:"order"`
}

// AttemptStateDetail 续考恢复需要的全量状态
type AttemptStateDetail struct {
	Attempt          *model.Attempt      `json:"attempt"`
	Test             *model.Test         `json:"test"`
	Questions        []StudentQuestion   `json:"questions"`
	Responses        []model.Response    `json:"responses"`
	SectionState     *model.SectionState `json:"sectionState,omitempty"`
	RemainingSeconds int                 `json:"remainingSeconds"`
}

type SaveResponseReq struct {
	SelectedAnswer    string              `json:"selectedAnswer"`
	IsMarkedForReview bool                `json:"isMarkedForReview"`
	TimeSpentSeconds  int                 `json:"timeSpentSeconds"`
	SectionState      *model.SectionState `json:"sectionState,omitempty"`
}

type SubmitAttemptReq struct {
	TimeTakenSeconds int  `json:"timeTakenSeconds"`
	IsTimeout        bool `json:"isTimeout"`
}

// AttemptResultDetail 成绩页数据。评分未完成时统计字段为零值，以 attempt.status 为准。
type AttemptResultDetail struct {
	Attempt        *model.Attempt `json:"attempt"`
	TotalQuestions int            `json:"totalQuestions"`
	Answered       int            `json:"answered"`
	Correct        int            `json:"correct"`
	Wrong          int            `json:"wrong"`
	Unanswered     int            `json:"unanswered"`
}

// ReviewQuestion 考后回顾的单题视图，带标准答案、解析和得分
type ReviewQuestion struct {
	Question       StudentQuestion `json:"question"`
	CorrectOptions []string        `json:"correctOptions,omitempty"`
	CorrectValue   string          `json:"correctValue,omitempty"`
	Explanation    string          `json:"explanation,omitempty"`
	Response       *model.Response `json:"response,omitempty"`
}

type AttemptReviewDetail struct {
	Attempt   *model.Attempt   `json:"attempt"`
	Test      *model.Test      `json:"test"`
	Questions []ReviewQuestion `json:"questions"`
}

// StartAttempt 开考。已有进行中的考试直接返回（续考语义），不重复开卷。
func (s *AttemptService) StartAttempt(userID, testID uint) (*model.Attempt, error) {
	// 1. 校验试卷可用且用户有权访问
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
	if err := s.checkAccess(userID, test); err != nil {
		return nil, err
	}

	// 2. 已有进行中的记录则续考
	existing, err := s.AttemptRepo.FindActiveByUserAndTest(userID, testID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 3. 新开一条 in_progress 记录
	attempt := &model.Attempt{
		TestID:    testID,
		UserID:    userID,
		Status:    model.AttemptInProgress,
		StartedAt: time.Now(),
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// GetAttemptState 拉取续考状态：试卷、题目（不带答案）、已保存的作答和剩余时间
func (s *AttemptService) GetAttemptState(userID, attemptID uint) (*AttemptStateDetail, error) {
	attempt, err := s.findOwnedAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}

	test, err := s.TestRepo.FindByID(attempt.TestID)
	if err != nil {
		return nil, err
	}

	questions, err := s.QuestionRepo.ListByTest(attempt.TestID)
	if err != nil {
		return nil, err
	}

	responses, err := s.ResponseRepo.ListByAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	sectionState, err := attempt.ParseSectionState()
	if err != nil {
		logger.Log.Warn("Corrupt section state, ignoring",
			zap.Uint("attemptId", attemptID),
			zap.Error(err))
	}

	// 剩余时间以服务端开考时间为准，前端上报只作展示参考
	remaining := 0
	if attempt.Status == model.AttemptInProgress {
		elapsed := int(time.Since(attempt.StartedAt).Seconds())
		remaining = test.DurationMinutes*60 - elapsed
		if remaining < 0 {
			remaining = 0
		}
	}

	return &AttemptStateDetail{
		Attempt:          attempt,
		Test:             test,
		Questions:        toStudentQuestions(questions),
		Responses:        responses,
		SectionState:     sectionState,
		RemainingSeconds: remaining,
	}, nil
}

// SaveResponse 自动保存单题作答。同一题反复保存走 upsert，最后一次写入生效；
// 考试不在进行中一律拒绝。
func (s *AttemptService) SaveResponse(userID, attemptID, questionID uint, req SaveResponseReq) (*model.Response, error) {
	attempt, err := s.findOwnedAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, util.ErrAttemptNotActive
	}

	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if question.TestID != attempt.TestID {
		return nil, util.ErrQuestionNotInTest
	}

	resp := &model.Response{
		AttemptID:         attemptID,
		QuestionID:        questionID,
		SelectedAnswer:    req.SelectedAnswer,
		IsMarkedForReview: req.IsMarkedForReview,
		IsVisited:         true,
		TimeSpentSeconds:  req.TimeSpentSeconds,
		LastSavedAt:       time.Now(),
	}
	if err := s.ResponseRepo.Upsert(resp); err != nil {
		return nil, err
	}

	// 作答请求顺带携带的进度快照
	if req.SectionState != nil {
		raw, _ := json.Marshal(req.SectionState)
		if err := s.AttemptRepo.UpdateFields(attemptID, map[string]interface{}{
			"section_state": string(raw),
		}); err != nil {
			logger.Log.Warn("Failed to save section state",
				zap.Uint("attemptId", attemptID),
				zap.Error(err))
		}
	}

	return resp, nil
}

// SubmitAttempt 交卷：in_progress → processing，然后投递评分任务。
// 状态守卫保证并发交卷只有一次生效，重复交卷报 ErrTestAlreadySubmitted。
func (s *AttemptService) SubmitAttempt(userID, attemptID uint, req SubmitAttemptReq) (*model.Attempt, error) {
	attempt, err := s.findOwnedAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	timeTaken := req.TimeTakenSeconds
	if timeTaken <= 0 {
		timeTaken = int(now.Sub(attempt.StartedAt).Seconds())
	}

	ok, err := s.AttemptRepo.TransitionStatus(attemptID, model.AttemptInProgress, model.AttemptProcessing, map[string]interface{}{
		"submitted_at":       &now,
		"time_taken_seconds": timeTaken,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrTestAlreadySubmitted
	}

	// 投递评分任务。队列不可用时 Dispatch 内部降级为同步评分，
	// 用户视角交卷永远成功。
	if _, err := s.Dispatcher.Dispatch(context.Background(), queue.JobScoreTest, queue.ScoreTestPayload{AttemptID: attemptID}); err != nil {
		logger.Log.Error("Failed to dispatch scoring job",
			zap.Uint("attemptId", attemptID),
			zap.Error(err))
	}

	return s.AttemptRepo.FindByID(attemptID)
}

// ScoreAndFinalize 整卷评分并落库：异步 worker 和同步降级都走这一条路径。
// 对同一 attempt 重复执行是安全的：已完成直接返回，并发执行只有一个能完成状态转移。
func (s *AttemptService) ScoreAndFinalize(attemptID uint) error {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptNotFound
		}
		return err
	}

	if attempt.Status.IsFinished() {
		return nil
	}
	if attempt.Status != model.AttemptProcessing {
		// 未交卷的 attempt 不该出现评分任务，跳过而不是报错重试
		logger.Log.Warn("Scoring job for attempt not in processing state, skipping",
			zap.Uint("attemptId", attemptID),
			zap.String("status", string(attempt.Status)))
		return nil
	}

	// 1. 加载试卷、整卷题目和全部作答
	test, err := s.TestRepo.FindByID(attempt.TestID)
	if err != nil {
		return err
	}
	questions, err := s.QuestionRepo.ListByTest(attempt.TestID)
	if err != nil {
		return err
	}
	responses, err := s.ResponseRepo.ListByAttempt(attemptID)
	if err != nil {
		return err
	}

	// 2. 纯函数评分
	score, err := ScoreAttempt(test, questions, responses)
	if err != nil {
		return fmt.Errorf("%w: attempt %d: %v", util.ErrScoringFailed, attemptID, err)
	}

	// 3. 单题得分回填 + 总分落库 + 状态推进，整体一个事务
	err = s.AttemptRepo.DB.Transaction(func(tx *gorm.DB) error {
		for i := range responses {
			qs, ok := score.Questions[responses[i].QuestionID]
			if !ok {
				continue
			}
			if err := tx.Model(&model.Response{}).
				Where("id = ?", responses[i].ID).
				Updates(map[string]interface{}{
					"is_correct":    qs.IsCorrect,
					"marks_awarded": qs.MarksAwarded,
				}).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&model.Attempt{}).
			Where("id = ? AND status = ?", attemptID, model.AttemptProcessing).
			Updates(map[string]interface{}{
				"status":    model.AttemptSubmitted,
				"score":     score.TotalScore,
				"max_score": score.MaxScore,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 并发评分另一边已完成，本次放弃
			return nil
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Attempt scored",
		zap.Uint("attemptId", attemptID),
		zap.Float64("score", score.TotalScore),
		zap.Float64("maxScore", score.MaxScore),
		zap.Int("correct", score.Correct),
		zap.Int("wrong", score.Wrong),
		zap.Int("unanswered", score.Unanswered))

	// 4. 评分成功后才投递统计任务，保证统计永远基于已落库的分数
	if _, err := s.Dispatcher.Dispatch(context.Background(), queue.JobComputeAnalytics, queue.ComputeAnalyticsPayload{
		UserID: attempt.UserID,
		TestID: attempt.TestID,
	}); err != nil {
		logger.Log.Error("Failed to dispatch analytics job",
			zap.Uint("attemptId", attemptID),
			zap.Error(err))
	}

	return nil
}

// GetAttemptResult 成绩页。status 未到 submitted 时只返回状态让前端轮询。
func (s *AttemptService) GetAttemptResult(userID, attemptID uint) (*AttemptResultDetail, error) {
	attempt, err := s.findOwnedAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}

	detail := &AttemptResultDetail{Attempt: attempt}

	if !attempt.Status.IsFinished() {
		return detail, nil
	}

	total, err := s.QuestionRepo.CountByTest(attempt.TestID)
	if err != nil {
		return nil, err
	}
	responses, err := s.ResponseRepo.ListByAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	detail.TotalQuestions = int(total)
	for _, r := range responses {
		if !r.IsAnswered() {
			continue
		}
		detail.Answered++
		if r.IsCorrect != nil && *r.IsCorrect {
			detail.Correct++
		} else {
			detail.Wrong++
		}
	}
	detail.Unanswered = detail.TotalQuestions - detail.Answered

	return detail, nil
}

// GetAttemptReview 考后回顾：标准答案、解析和逐题得分。评分完成前不可见。
func (s *AttemptService) GetAttemptReview(userID, attemptID uint) (*AttemptReviewDetail, error) {
	attempt, err := s.findOwnedAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.Status.IsFinished() {
		return nil, util.ErrAttemptNotFinished
	}

	test, err := s.TestRepo.FindByID(attempt.TestID)
	if err != nil {
		return nil, err
	}
	questions, err := s.QuestionRepo.ListByTest(attempt.TestID)
	if err != nil {
		return nil, err
	}
	responses, err := s.ResponseRepo.ListByAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	respMap := make(map[uint]*model.Response, len(responses))
	for i := range responses {
		respMap[responses[i].QuestionID] = &responses[i]
	}

	review := make([]ReviewQuestion, 0, len(questions))
	for _, q := range questions {
		rq := ReviewQuestion{
			Question:    toStudentQuestion(&q),
			Explanation: q.Explanation,
			Response:    respMap[q.ID],
		}

		key, err := q.AnswerKey()
		if err != nil {
			logger.Log.Warn("Skipping answer key in review",
				zap.Uint("questionId", q.ID),
				zap.Error(err))
		} else {
			switch key.Type {
			case model.SingleChoice:
				rq.CorrectOptions = []string{key.CorrectOptionID}
			case model.MultipleChoice:
				rq.CorrectOptions = key.CorrectOptionIDs
			case model.Numeric:
				rq.CorrectValue = key.CorrectValue
			}
		}

		review = append(review, rq)
	}

	return &AttemptReviewDetail{
		Attempt:   attempt,
		Test:      test,
		Questions: review,
	}, nil
}

func (s *AttemptService) ListUserAttempts(userID, testID uint, page, limit int) ([]model.Attempt, int64, error) {
	return s.AttemptRepo.ListByUser(userID, testID, page, limit)
}

// findOwnedAttempt 取 attempt 并校验归属
func (s *AttemptService) findOwnedAttempt(userID, attemptID uint) (*model.Attempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return attempt, nil
}

func (s *AttemptService) checkAccess(userID uint, test *model.Test) error {
	if test.IsFree {
		return nil
	}
	has, err := s.TestRepo.HasEntitlement(userID, test.ID)
	if err != nil {
		return err
	}
	if !has {
		return util.ErrTestNotPurchased
	}
	return nil
}

func toStudentQuestion(q *model.Question) StudentQuestion {
	options, err := q.ParseOptions()
	if err != nil {
		logger.Log.Warn("Corrupt question options",
			zap.Uint("questionId", q.ID),
			zap.Error(err))
	}
	// 下发给考生的选项不能带 isCorrect
	sanitized := make([]model.QuestionOption, len(options))
	for i, opt := range options {
		sanitized[i] = model.QuestionOption{ID: opt.ID, Text: opt.Text}
	}

	return StudentQuestion{
		ID:            q.ID,
		Type:          q.Type,
		Content:       q.Content,
		Options:       sanitized,
		Marks:         q.Marks,
		NegativeMarks: q.NegativeMarks,
		SectionID:     q.SectionID,
		Order:         q.Order,
	}
}

func toStudentQuestions(questions []model.Question) []StudentQuestion {
	out := make([]StudentQuestion, len(questions))
	for i := range questions {
		out[i] = toStudentQuestion(&questions[i])
	}
	return out
}
