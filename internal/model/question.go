package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	Numeric        QuestionType = "numeric"
)

// swagger:model Question
type Question struct {
	BaseModel

	TestID        uint         `gorm:"index;type:bigint unsigned" json:"testId"`
	Type          QuestionType `gorm:"size:50" json:"type"`
	Content       string       `gorm:"type:text" json:"content"`
	Options       string       `gorm:"type:json" json:"options"`         // []QuestionOption（JSON array，选择题）
	CorrectAnswer string       `gorm:"size:100" json:"-"`                // numeric 题的标准答案
	Marks         float64      `gorm:"default:1" json:"marks"`           // 满分分值
	NegativeMarks float64      `gorm:"default:0" json:"negativeMarks"`   // 答错扣分（正数，0 表示不倒扣）
	SectionID     string       `gorm:"size:50;index" json:"sectionId"`
	Order         int          `gorm:"default:0" json:"order"`
	Explanation   string       `gorm:"type:text" json:"explanation"`
}

func (Question) TableName() string {
	return "questions"
}

type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect,omitempty"`
}

func (q *Question) ParseOptions() ([]QuestionOption, error) {
	if q.Options == "" {
		return nil, nil
	}
	var options []QuestionOption
	if err := json.Unmarshal([]byte(q.Options), &options); err != nil {
		return nil, err
	}
	return options, nil
}

// AnswerKey 题目标准答案，按题型取不同字段。
// 在题目加载边界构造并校验一次，评分引擎拿到的 key 一定是合法的。
type AnswerKey struct {
	Type             QuestionType
	CorrectOptionID  string   // single_choice
	CorrectOptionIDs []string // multiple_choice（集合语义，顺序无关）
	CorrectValue     string   // numeric
}

// AnswerKey 解析并校验标准答案。选项 JSON 损坏、标答缺失或与题型不符都在这里报错，
// 而不是等到评分时才发现。
func (q *Question) AnswerKey() (*AnswerKey, error) {
	switch q.Type {
	case SingleChoice, MultipleChoice:
		options, err := q.ParseOptions()
		if err != nil {
			return nil, fmt.Errorf("question %d: invalid options: %w", q.ID, err)
		}
		if len(options) == 0 {
			return nil, fmt.Errorf("question %d: no options defined", q.ID)
		}

		seen := make(map[string]bool, len(options))
		var correct []string
		for _, opt := range options {
			if opt.ID == "" {
				return nil, fmt.Errorf("question %d: option with empty id", q.ID)
			}
			if seen[opt.ID] {
				return nil, fmt.Errorf("question %d: duplicate option id %q", q.ID, opt.ID)
			}
			seen[opt.ID] = true
			if opt.IsCorrect {
				correct = append(correct, opt.ID)
			}
		}

		if q.Type == SingleChoice {
			if len(correct) != 1 {
				return nil, fmt.Errorf("question %d: single choice needs exactly one correct option, got %d", q.ID, len(correct))
			}
			return &AnswerKey{Type: SingleChoice, CorrectOptionID: correct[0]}, nil
		}

		if len(correct) == 0 {
			return nil, fmt.Errorf("question %d: multiple choice needs at least one correct option", q.ID)
		}
		return &AnswerKey{Type: MultipleChoice, CorrectOptionIDs: correct}, nil

	case Numeric:
		value := strings.TrimSpace(q.CorrectAnswer)
		if value == "" {
			return nil, fmt.Errorf("question %d: numeric question has no correct answer", q.ID)
		}
		return &AnswerKey{Type: Numeric, CorrectValue: value}, nil

	default:
		return nil, fmt.Errorf("question %d: unknown question type %q", q.ID, q.Type)
	}
}
