package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/queue"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/repository"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/database"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type examFixture struct {
	db        *gorm.DB
	users     *repository.UserRepository
	tests     *repository.TestRepository
	questions *repository.QuestionRepository
	attempts  *repository.AttemptRepository
	responses *repository.ResponseRepository
	registry  *queue.Registry
	svc       *AttemptService
	analytics *AnalyticsService
}

// newBareFixture 装配 sqlite 仓储和同步 Dispatcher，但不注册任何处理函数。
// 用来模拟评分任务丢失、考试卡在 processing 的场景。
func newBareFixture(t *testing.T) *examFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &examFixture{
		db:        db,
		users:     repository.NewUserRepository(db),
		tests:     repository.NewTestRepository(db),
		questions: repository.NewQuestionRepository(db),
		attempts:  repository.NewAttemptRepository(db),
		responses: repository.NewResponseRepository(db),
		registry:  queue.NewRegistry(),
	}

	dispatcher := queue.NewInlineDispatcher(f.registry)
	f.svc = NewAttemptService(f.attempts, f.responses, f.tests, f.questions, dispatcher)
	f.analytics = NewAnalyticsService(f.attempts, f.tests, nil, time.Minute)
	return f
}

// newExamFixture 在 newBareFixture 基础上注册评分和统计处理函数，
// 交卷后整条流水线在 Dispatch 内同步跑完。
func newExamFixture(t *testing.T) *examFixture {
	f := newBareFixture(t)

	// worker 包依赖本包，测试里按相同逻辑直接注册，避免循环引用
	f.registry.Register(queue.JobScoreTest, func(ctx context.Context, job *queue.Job) error {
		var p queue.ScoreTestPayload
		if err := job.DecodePayload(&p); err != nil {
			return err
		}
		return f.svc.ScoreAndFinalize(p.AttemptID)
	})
	f.registry.Register(queue.JobComputeAnalytics, func(ctx context.Context, job *queue.Job) error {
		var p queue.ComputeAnalyticsPayload
		if err := job.DecodePayload(&p); err != nil {
			return err
		}
		return f.analytics.RecomputeForSubmission(p.UserID, p.TestID)
	})
	return f
}

func (f *examFixture) seedUser(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{
		Name:     name,
		Email:    name + "@example.com",
		Password: "hashed",
		Role:     model.Student,
	}
	if err := f.users.Create(u); err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

// seedExam 标准三题试卷：单选 2 分倒扣 0.66，多选 4 分倒扣 1，数值 4 分倒扣 1，满分 10
func (f *examFixture) seedExam(t *testing.T) (*model.Test, []model.Question) {
	t.Helper()

	exam := &model.Test{
		Title:           "GATE CS Mock 1",
		Subject:         "CS",
		DurationMinutes: 180,
		TotalMarks:      10,
		IsFree:          true,
		IsPublished:     true,
		Sections:        `[{"id":"core","name":"Core Subjects"}]`,
	}
	if err := f.tests.Create(exam); err != nil {
		t.Fatalf("seed exam: %v", err)
	}

	questions := []model.Question{
		{
			TestID:        exam.ID,
			Type:          model.SingleChoice,
			Content:       "Worst case complexity of binary search?",
			Options:       `[{"id":"A","text":"O(n)"},{"id":"B","text":"O(log n)","isCorrect":true},{"id":"C","text":"O(1)"}]`,
			Marks:         2,
			NegativeMarks: 0.66,
			SectionID:     "core",
			Order:         1,
			Explanation:   "Each comparison halves the search interval.",
		},
		{
			TestID:        exam.ID,
			Type:          model.MultipleChoice,
			Content:       "Which of these are stable sorts?",
			Options:       `[{"id":"A","text":"Merge sort","isCorrect":true},{"id":"B","text":"Heap sort"},{"id":"C","text":"Insertion sort","isCorrect":true}]`,
			Marks:         4,
			NegativeMarks: 1,
			SectionID:     "core",
			Order:         2,
		},
		{
			TestID:        exam.ID,
			Type:          model.Numeric,
			Content:       "Number of edges in K4?",
			CorrectAnswer: "6",
			Marks:         4,
			NegativeMarks: 1,
			SectionID:     "core",
			Order:         3,
		},
	}
	if err := f.questions.CreateBatch(questions); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return exam, questions
}

func assertErrIs(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("expected error %v, got %v", want, got)
	}
}

func TestStartAttempt_NewAndResume(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "aarav")
	exam, _ := f.seedExam(t)

	first, err := f.svc.StartAttempt(user.ID, exam.ID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected attempt to be persisted")
	}
	if first.Status != model.AttemptInProgress {
		t.Fatalf("expected status in_progress, got %s", first.Status)
	}
	if first.TestID != exam.ID || first.UserID != user.ID {
		t.Fatalf("attempt bound to wrong test/user: %+v", first)
	}
	if first.StartedAt.IsZero() {
		t.Fatal("expected StartedAt to be set")
	}

	// 再次开考返回同一场（续考），不重复开卷
	second, err := f.svc.StartAttempt(user.ID, exam.ID)
	if err != nil {
		t.Fatalf("resume attempt: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected resume to return attempt %d, got %d", first.ID, second.ID)
	}

	// 交卷之后再开考是新的一场
	if _, err := f.svc.SubmitAttempt(user.ID, first.ID, SubmitAttemptReq{TimeTakenSeconds: 60}); err != nil {
		t.Fatalf("submit attempt: %v", err)
	}
	third, err := f.svc.StartAttempt(user.ID, exam.ID)
	if err != nil {
		t.Fatalf("start new attempt: %v", err)
	}
	if third.ID == first.ID {
		t.Fatal("expected a fresh attempt after submission")
	}
}

func TestStartAttempt_AccessControl(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "meera")

	_, err := f.svc.StartAttempt(user.ID, 9999)
	assertErrIs(t, err, util.ErrTestNotFound)

	draft := &model.Test{Title: "Draft Mock", TotalMarks: 5, IsFree: true, IsPublished: false}
	if err := f.tests.Create(draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	_, err = f.svc.StartAttempt(user.ID, draft.ID)
	assertErrIs(t, err, util.ErrTestNotPublished)

	paid := &model.Test{Title: "Premium Mock", TotalMarks: 5, IsFree: false, IsPublished: true}
	if err := f.tests.Create(paid); err != nil {
		t.Fatalf("seed paid: %v", err)
	}
	_, err = f.svc.StartAttempt(user.ID, paid.ID)
	assertErrIs(t, err, util.ErrTestNotPurchased)

	ent := &model.Entitlement{UserID: user.ID, TestID: paid.ID, Source: "purchase"}
	if err := f.tests.CreateEntitlement(ent); err != nil {
		t.Fatalf("seed entitlement: %v", err)
	}
	attempt, err := f.svc.StartAttempt(user.ID, paid.ID)
	if err != nil {
		t.Fatalf("start paid attempt after entitlement: %v", err)
	}
	if attempt.TestID != paid.ID {
		t.Fatalf("expected attempt on test %d, got %d", paid.ID, attempt.TestID)
	}
}

func TestSaveResponse_UpsertLastWriteWins(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "rohan")
	_, questions := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, questions[0].TestID)

	saves := []SaveResponseReq{
		{SelectedAnswer: "A", TimeSpentSeconds: 10},
		{SelectedAnswer: "B", IsMarkedForReview: true, TimeSpentSeconds: 25},
		{SelectedAnswer: "C", TimeSpentSeconds: 40},
	}
	for i, req := range saves {
		if _, err := f.svc.SaveResponse(user.ID, attempt.ID, questions[0].ID, req); err != nil {
			t.Fatalf("save #%d: %v", i+1, err)
		}
	}

	rows, err := f.responses.ListByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single row after repeated saves, got %d", len(rows))
	}

	r := rows[0]
	if r.SelectedAnswer != "C" {
		t.Fatalf("expected last answer C, got %q", r.SelectedAnswer)
	}
	if r.IsMarkedForReview {
		t.Fatal("expected review mark cleared by last save")
	}
	if r.TimeSpentSeconds != 40 {
		t.Fatalf("expected time spent 40, got %d", r.TimeSpentSeconds)
	}
	if !r.IsVisited {
		t.Fatal("expected response marked visited")
	}
	if r.LastSavedAt.IsZero() {
		t.Fatal("expected LastSavedAt to be set")
	}
}

func TestSaveResponse_Validation(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "kavya")
	_, questions := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, questions[0].TestID)

	_, err := f.svc.SaveResponse(user.ID, attempt.ID, 9999, SaveResponseReq{SelectedAnswer: "A"})
	assertErrIs(t, err, util.ErrQuestionNotFound)

	// 另一张试卷的题不能挂到这场考试上
	_, otherQuestions := f.seedExam(t)
	_, err = f.svc.SaveResponse(user.ID, attempt.ID, otherQuestions[0].ID, SaveResponseReq{SelectedAnswer: "A"})
	assertErrIs(t, err, util.ErrQuestionNotInTest)
}

func TestSaveResponse_SectionState(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "diya")
	_, questions := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, questions[0].TestID)

	req := SaveResponseReq{
		SelectedAnswer:   "B",
		TimeSpentSeconds: 15,
		SectionState:     &model.SectionState{ActiveSectionID: "core", RemainingSeconds: 5400},
	}
	if _, err := f.svc.SaveResponse(user.ID, attempt.ID, questions[0].ID, req); err != nil {
		t.Fatalf("save with section state: %v", err)
	}

	reloaded, err := f.attempts.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	state, err := reloaded.ParseSectionState()
	if err != nil {
		t.Fatalf("parse section state: %v", err)
	}
	if state == nil || state.ActiveSectionID != "core" || state.RemainingSeconds != 5400 {
		t.Fatalf("unexpected section state: %+v", state)
	}
}

func TestSubmitAttempt_InlinePipeline(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "aditi")
	exam, questions := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, exam.ID)

	// 单选答对 +2，多选漏选 -1，数值题不作答
	f.saveAnswer(t, user.ID, attempt.ID, questions[0].ID, "B")
	f.saveAnswer(t, user.ID, attempt.ID, questions[1].ID, "A")

	submitted, err := f.svc.SubmitAttempt(user.ID, attempt.ID, SubmitAttemptReq{TimeTakenSeconds: 1234})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 同步 Dispatcher 在交卷请求里跑完评分和统计
	if submitted.Status != model.AttemptSubmitted {
		t.Fatalf("expected status submitted, got %s", submitted.Status)
	}
	if submitted.SubmittedAt == nil {
		t.Fatal("expected SubmittedAt to be set")
	}
	if submitted.TimeTakenSeconds != 1234 {
		t.Fatalf("expected time taken 1234, got %d", submitted.TimeTakenSeconds)
	}
	if submitted.Score == nil || *submitted.Score != 1 {
		t.Fatalf("expected score 1, got %v", submitted.Score)
	}
	if submitted.MaxScore == nil || *submitted.MaxScore != exam.TotalMarks {
		t.Fatalf("expected max score %v, got %v", exam.TotalMarks, submitted.MaxScore)
	}
	if submitted.Percentile == nil || *submitted.Percentile != 0 {
		t.Fatalf("expected percentile 0 for the only participant, got %v", submitted.Percentile)
	}

	// 逐题得分回填
	single, err := f.responses.FindByAttemptAndQuestion(attempt.ID, questions[0].ID)
	if err != nil {
		t.Fatalf("reload single choice response: %v", err)
	}
	if single.IsCorrect == nil || !*single.IsCorrect {
		t.Fatalf("expected single choice marked correct, got %v", single.IsCorrect)
	}
	if single.MarksAwarded == nil || *single.MarksAwarded != 2 {
		t.Fatalf("expected 2 marks awarded, got %v", single.MarksAwarded)
	}

	multi, err := f.responses.FindByAttemptAndQuestion(attempt.ID, questions[1].ID)
	if err != nil {
		t.Fatalf("reload multiple choice response: %v", err)
	}
	if multi.IsCorrect == nil || *multi.IsCorrect {
		t.Fatalf("expected multiple choice marked wrong, got %v", multi.IsCorrect)
	}
	if multi.MarksAwarded == nil || *multi.MarksAwarded != -1 {
		t.Fatalf("expected -1 marks awarded, got %v", multi.MarksAwarded)
	}

	result, err := f.svc.GetAttemptResult(user.ID, attempt.ID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if result.TotalQuestions != 3 || result.Answered != 2 || result.Correct != 1 || result.Wrong != 1 || result.Unanswered != 1 {
		t.Fatalf("unexpected result stats: %+v", result)
	}
}

func TestSubmitAttempt_ScoringPending(t *testing.T) {
	// 不注册处理函数，模拟评分任务丢失：交卷成功但停在 processing
	f := newBareFixture(t)
	user := f.seedUser(t, "ishaan")
	exam, questions := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, exam.ID)
	f.saveAnswer(t, user.ID, attempt.ID, questions[0].ID, "B")

	submitted, err := f.svc.SubmitAttempt(user.ID, attempt.ID, SubmitAttemptReq{TimeTakenSeconds: 300})
	if err != nil {
		t.Fatalf("submit must not fail when scoring is unavailable: %v", err)
	}
	if submitted.Status != model.AttemptProcessing {
		t.Fatalf("expected status processing, got %s", submitted.Status)
	}
	if submitted.Score != nil {
		t.Fatalf("expected no score yet, got %v", submitted.Score)
	}

	// 评分完成前：结果页只有状态，回顾页不可见，作答和重复交卷都被拒绝
	result, err := f.svc.GetAttemptResult(user.ID, attempt.ID)
	if err != nil {
		t.Fatalf("get result while processing: %v", err)
	}
	if result.TotalQuestions != 0 || result.Answered != 0 {
		t.Fatalf("expected zero stats while processing, got %+v", result)
	}

	_, err = f.svc.GetAttemptReview(user.ID, attempt.ID)
	assertErrIs(t, err, util.ErrAttemptNotFinished)

	_, err = f.svc.SaveResponse(user.ID, attempt.ID, questions[0].ID, SaveResponseReq{SelectedAnswer: "A"})
	assertErrIs(t, err, util.ErrAttemptNotActive)

	_, err = f.svc.SubmitAttempt(user.ID, attempt.ID, SubmitAttemptReq{})
	assertErrIs(t, err, util.ErrTestAlreadySubmitted)
}

func TestSubmitAttempt_ComputesTimeTaken(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "vivaan")
	exam, _ := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, exam.ID)

	// 客户端没报用时，按服务端开考时间推算
	err := f.attempts.UpdateFields(attempt.ID, map[string]interface{}{
		"started_at": time.Now().Add(-90 * time.Second),
	})
	if err != nil {
		t.Fatalf("backdate started_at: %v", err)
	}

	submitted, err := f.svc.SubmitAttempt(user.ID, attempt.ID, SubmitAttemptReq{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.TimeTakenSeconds < 89 || submitted.TimeTakenSeconds > 92 {
		t.Fatalf("expected time taken around 90s, got %d", submitted.TimeTakenSeconds)
	}
}

func TestScoreAndFinalize_Idempotent(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "ananya")
	exam, questions := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, exam.ID)
	f.saveAnswer(t, user.ID, attempt.ID, questions[0].ID, "B")

	if _, err := f.svc.SubmitAttempt(user.ID, attempt.ID, SubmitAttemptReq{TimeTakenSeconds: 100}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	before, err := f.attempts.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}

	// 同一任务重复投递（至少一次语义）不改变结果
	if err := f.svc.ScoreAndFinalize(attempt.ID); err != nil {
		t.Fatalf("rescore finished attempt: %v", err)
	}
	after, err := f.attempts.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	if after.Status != before.Status || *after.Score != *before.Score {
		t.Fatalf("rescore changed attempt: before %+v after %+v", before, after)
	}

	// 未交卷的考试不评分，也不报错触发重试
	fresh := f.startAttempt(t, user.ID, exam.ID)
	if err := f.svc.ScoreAndFinalize(fresh.ID); err != nil {
		t.Fatalf("score in_progress attempt: %v", err)
	}
	reloaded, err := f.attempts.FindByID(fresh.ID)
	if err != nil {
		t.Fatalf("reload fresh attempt: %v", err)
	}
	if reloaded.Status != model.AttemptInProgress {
		t.Fatalf("expected in_progress untouched, got %s", reloaded.Status)
	}

	assertErrIs(t, f.svc.ScoreAndFinalize(9999), util.ErrAttemptNotFound)
}

func TestGetAttemptState_Resume(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "arjun")
	exam, questions := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, exam.ID)

	req := SaveResponseReq{
		SelectedAnswer: "B",
		SectionState:   &model.SectionState{ActiveSectionID: "core", RemainingSeconds: 9000},
	}
	if _, err := f.svc.SaveResponse(user.ID, attempt.ID, questions[0].ID, req); err != nil {
		t.Fatalf("save: %v", err)
	}

	state, err := f.svc.GetAttemptState(user.ID, attempt.ID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Attempt.ID != attempt.ID || state.Test.ID != exam.ID {
		t.Fatal("state bound to wrong attempt or test")
	}
	if len(state.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(state.Questions))
	}
	for _, q := range state.Questions {
		for _, opt := range q.Options {
			if opt.IsCorrect {
				t.Fatalf("question %d leaks correct option %s", q.ID, opt.ID)
			}
		}
	}
	if len(state.Responses) != 1 {
		t.Fatalf("expected 1 saved response, got %d", len(state.Responses))
	}
	if state.SectionState == nil || state.SectionState.ActiveSectionID != "core" {
		t.Fatalf("unexpected section state: %+v", state.SectionState)
	}
	if state.RemainingSeconds <= 0 || state.RemainingSeconds > exam.DurationMinutes*60 {
		t.Fatalf("remaining seconds out of range: %d", state.RemainingSeconds)
	}

	// 超时后剩余时间只收敛到 0，不出负数
	err = f.attempts.UpdateFields(attempt.ID, map[string]interface{}{
		"started_at": time.Now().Add(-time.Duration(exam.DurationMinutes+1) * time.Minute),
	})
	if err != nil {
		t.Fatalf("backdate started_at: %v", err)
	}
	state, err = f.svc.GetAttemptState(user.ID, attempt.ID)
	if err != nil {
		t.Fatalf("get state after timeout: %v", err)
	}
	if state.RemainingSeconds != 0 {
		t.Fatalf("expected 0 remaining seconds, got %d", state.RemainingSeconds)
	}
}

func TestGetAttemptReview_AfterScoring(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "sneha")
	exam, questions := f.seedExam(t)
	attempt := f.startAttempt(t, user.ID, exam.ID)
	f.saveAnswer(t, user.ID, attempt.ID, questions[0].ID, "B")
	f.saveAnswer(t, user.ID, attempt.ID, questions[1].ID, "A,C")

	if _, err := f.svc.SubmitAttempt(user.ID, attempt.ID, SubmitAttemptReq{TimeTakenSeconds: 2000}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	review, err := f.svc.GetAttemptReview(user.ID, attempt.ID)
	if err != nil {
		t.Fatalf("get review: %v", err)
	}
	if len(review.Questions) != 3 {
		t.Fatalf("expected 3 review questions, got %d", len(review.Questions))
	}

	single := review.Questions[0]
	if len(single.CorrectOptions) != 1 || single.CorrectOptions[0] != "B" {
		t.Fatalf("expected correct option B, got %v", single.CorrectOptions)
	}
	if single.Explanation == "" {
		t.Fatal("expected explanation on the single choice question")
	}
	if single.Response == nil || single.Response.MarksAwarded == nil || *single.Response.MarksAwarded != 2 {
		t.Fatalf("expected response with 2 marks attached, got %+v", single.Response)
	}

	multi := review.Questions[1]
	if len(multi.CorrectOptions) != 2 {
		t.Fatalf("expected 2 correct options, got %v", multi.CorrectOptions)
	}
	want := map[string]bool{"A": true, "C": true}
	for _, id := range multi.CorrectOptions {
		if !want[id] {
			t.Fatalf("unexpected correct option %s", id)
		}
	}

	numeric := review.Questions[2]
	if numeric.CorrectValue != "6" {
		t.Fatalf("expected correct value 6, got %q", numeric.CorrectValue)
	}
	if numeric.Response != nil {
		t.Fatal("expected no response on the unanswered question")
	}

	// 回顾页的选项同样不带 isCorrect 标记
	for _, rq := range review.Questions {
		for _, opt := range rq.Question.Options {
			if opt.IsCorrect {
				t.Fatalf("review leaks correct option %s", opt.ID)
			}
		}
	}
}

func TestAttemptOwnership(t *testing.T) {
	f := newExamFixture(t)
	owner := f.seedUser(t, "riya")
	intruder := f.seedUser(t, "dev")
	exam, questions := f.seedExam(t)
	attempt := f.startAttempt(t, owner.ID, exam.ID)

	cases := []struct {
		name string
		call func() error
	}{
		{"get state", func() error {
			_, err := f.svc.GetAttemptState(intruder.ID, attempt.ID)
			return err
		}},
		{"save response", func() error {
			_, err := f.svc.SaveResponse(intruder.ID, attempt.ID, questions[0].ID, SaveResponseReq{SelectedAnswer: "A"})
			return err
		}},
		{"submit", func() error {
			_, err := f.svc.SubmitAttempt(intruder.ID, attempt.ID, SubmitAttemptReq{})
			return err
		}},
		{"get result", func() error {
			_, err := f.svc.GetAttemptResult(intruder.ID, attempt.ID)
			return err
		}},
		{"get review", func() error {
			_, err := f.svc.GetAttemptReview(intruder.ID, attempt.ID)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertErrIs(t, tc.call(), util.ErrPermissionDenied)
		})
	}

	_, err := f.svc.GetAttemptState(owner.ID, 9999)
	assertErrIs(t, err, util.ErrAttemptNotFound)
}

func TestListUserAttempts(t *testing.T) {
	f := newExamFixture(t)
	user := f.seedUser(t, "nikhil")
	first, _ := f.seedExam(t)
	second, _ := f.seedExam(t)

	a1 := f.startAttempt(t, user.ID, first.ID)
	a2 := f.startAttempt(t, user.ID, second.ID)

	attempts, total, err := f.svc.ListUserAttempts(user.ID, 0, 1, 10)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if total != 2 || len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got total=%d len=%d", total, len(attempts))
	}
	// 最近的一场排在前面
	if attempts[0].ID != a2.ID {
		t.Fatalf("expected latest attempt %d first, got %d", a2.ID, attempts[0].ID)
	}

	attempts, total, err = f.svc.ListUserAttempts(user.ID, first.ID, 1, 10)
	if err != nil {
		t.Fatalf("list attempts filtered: %v", err)
	}
	if total != 1 || len(attempts) != 1 || attempts[0].ID != a1.ID {
		t.Fatalf("expected only attempt %d, got total=%d %+v", a1.ID, total, attempts)
	}
}

func (f *examFixture) startAttempt(t *testing.T, userID, testID uint) *model.Attempt {
	t.Helper()
	attempt, err := f.svc.StartAttempt(userID, testID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return attempt
}

func (f *examFixture) saveAnswer(t *testing.T, userID, attemptID, questionID uint, answer string) {
	t.Helper()
	_, err := f.svc.SaveResponse(userID, attemptID, questionID, SaveResponseReq{
		SelectedAnswer:   answer,
		TimeSpentSeconds: 30,
	})
	if err != nil {
		t.Fatalf("save answer for question %d: %v", questionID, err)
	}
}
