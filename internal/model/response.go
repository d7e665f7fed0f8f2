package model

import "time"

// Response 考生对单个题目的作答快照。(attempt_id, question_id) 唯一，
// 自动保存反复提交时走 upsert，最后一次写入生效。
// swagger:model Response
type Response struct {
	BaseModel

	AttemptID         uint      `gorm:"uniqueIndex:uniq_attempt_question;type:bigint unsigned" json:"attemptId"`
	QuestionID        uint      `gorm:"uniqueIndex:uniq_attempt_question;type:bigint unsigned" json:"questionId"`
	SelectedAnswer    string    `gorm:"type:text" json:"selectedAnswer"` // 单选/numeric 为原文，多选为逗号连接的选项 id
	IsMarkedForReview bool      `gorm:"default:false" json:"isMarkedForReview"`
	IsVisited         bool      `gorm:"default:true" json:"isVisited"`
	TimeSpentSeconds  int       `gorm:"default:0" json:"timeSpentSeconds"`
	LastSavedAt       time.Time `json:"lastSavedAt"`

	// 评分后回填
	IsCorrect    *bool    `json:"isCorrect,omitempty"`
	MarksAwarded *float64 `json:"marksAwarded,omitempty"`
}

func (Response) TableName() string {
	return "responses"
}

// IsAnswered 是否实际作答（只标记待查看不算作答，不参与倒扣）
func (r *Response) IsAnswered() bool {
	return r.SelectedAnswer != ""
}
