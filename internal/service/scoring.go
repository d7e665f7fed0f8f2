package service

import (
	"fmt"
	"strings"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"
)

// QuestionScore 单题判分结果。未作答时 IsCorrect 为 nil 且不扣分。
type QuestionScore struct {
	QuestionID   uint
	Answered     bool
	IsCorrect    *bool
	MarksAwarded float64
}

// AttemptScore 整卷判分结果
type AttemptScore struct {
	TotalScore float64
	MaxScore   float64
	Correct    int
	Wrong      int
	Unanswered int
	Questions  map[uint]QuestionScore
}

// ScoreAttempt 纯函数整卷评分：不触库、不触网，同样的输入永远给同样的输出。
// MaxScore 以试卷的 TotalMarks 为准，不从题目反推。
func ScoreAttempt(test *model.Test, questions []model.Question, responses []model.Response) (*AttemptScore, error) {
	byQuestion := make(map[uint]*model.Response, len(responses))
	for i := range responses {
		byQuestion[responses[i].QuestionID] = &responses[i]
	}

	result := &AttemptScore{
		MaxScore:  test.TotalMarks,
		Questions: make(map[uint]QuestionScore, len(questions)),
	}

	for _, q := range questions {
		key, err := q.AnswerKey()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrInvalidAnswerKey, err)
		}

		selected := ""
		if resp, ok := byQuestion[q.ID]; ok {
			selected = resp.SelectedAnswer
		}

		qs := ScoreQuestion(key, selected, q.Marks, q.NegativeMarks)
		qs.QuestionID = q.ID

		result.TotalScore += qs.MarksAwarded
		result.Questions[q.ID] = qs

		switch {
		case !qs.Answered:
			result.Unanswered++
		case qs.IsCorrect != nil && *qs.IsCorrect:
			result.Correct++
		default:
			result.Wrong++
		}
	}

	return result, nil
}

// ScoreQuestion 单题判分。答错扣 negativeMarks，未作答永远记 0 分、不倒扣。
func ScoreQuestion(key *model.AnswerKey, selectedAnswer string, marks, negativeMarks float64) QuestionScore {
	if negativeMarks < 0 {
		negativeMarks = 0
	}

	switch key.Type {
	case model.SingleChoice:
		selected := strings.TrimSpace(selectedAnswer)
		if selected == "" {
			return unansweredScore()
		}
		return answeredScore(selected == key.CorrectOptionID, marks, negativeMarks)

	case model.MultipleChoice:
		selected := parseMultiSelection(selectedAnswer)
		if len(selected) == 0 {
			return unansweredScore()
		}
		return answeredScore(equalSet(selected, key.CorrectOptionIDs), marks, negativeMarks)

	case model.Numeric:
		value := strings.TrimSpace(selectedAnswer)
		if value == "" {
			return unansweredScore()
		}
		return answeredScore(value == key.CorrectValue, marks, negativeMarks)

	default:
		// AnswerKey 构造时已挡掉未知题型，这里只是兜底
		return unansweredScore()
	}
}

func unansweredScore() QuestionScore {
	return QuestionScore{Answered: false, IsCorrect: nil, MarksAwarded: 0}
}

func answeredScore(correct bool, marks, negativeMarks float64) QuestionScore {
	awarded := -negativeMarks
	if correct {
		awarded = marks
	}
	return QuestionScore{Answered: true, IsCorrect: &correct, MarksAwarded: awarded}
}

// parseMultiSelection 解析多选作答：逗号连接的选项 id 集合。
// 空段忽略、去重，集合语义与顺序无关。
func parseMultiSelection(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, v := range parts {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// equalSet 两个集合完全相等才算对：多选、漏选都是错
func equalSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if !set[v] {
			return false
		}
	}
	return true
}
