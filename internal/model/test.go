package model

import "encoding/json"

// swagger:model Test
type Test struct {
	BaseModel

	Title           string  `gorm:"size:200;not null" json:"title"`
	Description     string  `gorm:"type:text" json:"description"`
	Subject         string  `gorm:"size:100;index" json:"subject"`
	DurationMinutes int     `gorm:"default:180" json:"durationMinutes"`
	TotalMarks      float64 `json:"totalMarks"`
	IsFree          bool    `gorm:"default:false" json:"isFree"`
	IsPublished     bool    `gorm:"default:false;index" json:"isPublished"`
	Sections        string  `gorm:"type:json" json:"sections"` // []TestSection（JSON array）
}

func (Test) TableName() string {
	return "tests"
}

type TestSection struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

func (t *Test) ParseSections() ([]TestSection, error) {
	if t.Sections == "" {
		return nil, nil
	}
	var sections []TestSection
	if err := json.Unmarshal([]byte(t.Sections), &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// Entitlement 用户对收费试卷的访问授权（购买或后台发放）
// swagger:model Entitlement
type Entitlement struct {
	BaseModel

	UserID uint   `gorm:"uniqueIndex:uniq_user_test;type:bigint unsigned" json:"userId"`
	TestID uint   `gorm:"uniqueIndex:uniq_user_test;type:bigint unsigned" json:"testId"`
	Source string `gorm:"size:50;default:'purchase'" json:"source"`
}

func (Entitlement) TableName() string {
	return "entitlements"
}
