package model

import (
	"encoding/json"
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptProcessing AttemptStatus = "processing" // 已交卷，评分中
	AttemptSubmitted  AttemptStatus = "submitted"  // 评分完成
	AttemptEvaluated  AttemptStatus = "evaluated"  // 人工复核完成（预留终态）
)

// 状态只能沿生命周期单向前进，不允许回退。
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptInProgress: {AttemptProcessing},
	AttemptProcessing: {AttemptSubmitted},
	AttemptSubmitted:  {AttemptEvaluated},
	AttemptEvaluated:  {},
}

func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinished 评分是否已经落库（结果/回顾页可见）
func (s AttemptStatus) IsFinished() bool {
	return s == AttemptSubmitted || s == AttemptEvaluated
}

// swagger:model Attempt
type Attempt struct {
	BaseModel

	TestID           uint          `gorm:"index;type:bigint unsigned" json:"testId"`
	UserID           uint          `gorm:"index;type:bigint unsigned" json:"userId"`
	Status           AttemptStatus `gorm:"size:20;default:'in_progress';index" json:"status"`
	StartedAt        time.Time     `json:"startedAt"`
	SubmittedAt      *time.Time    `json:"submittedAt,omitempty"`
	Score            *float64      `json:"score,omitempty"`
	MaxScore         *float64      `json:"maxScore,omitempty"`
	Percentile       *float64      `json:"percentile,omitempty"`
	TimeTakenSeconds int           `json:"timeTakenSeconds"`
	SectionState     string        `gorm:"type:json" json:"sectionState,omitempty"` // SectionState（JSON，续考恢复用）
}

func (Attempt) TableName() string {
	return "attempts"
}

// SectionState 前端续考需要恢复的进度快照
type SectionState struct {
	ActiveSectionID  string `json:"activeSectionId"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

func (a *Attempt) ParseSectionState() (*SectionState, error) {
	if a.SectionState == "" {
		return nil, nil
	}
	var state SectionState
	if err := json.Unmarshal([]byte(a.SectionState), &state); err != nil {
		return nil, err
	}
	return &state, nil
}
