package model

// 统计来源标记：cache 命中缓存，calculated 实时计算
const (
	StatSourceCache      = "cache"
	StatSourceCalculated = "calculated"
)

// TestAggregateStats 试卷整体统计
type TestAggregateStats struct {
	TestID        uint                      `json:"testId"`
	TotalAttempts int                       `json:"totalAttempts"`
	AverageScore  float64                   `json:"averageScore"`
	HighestScore  float64                   `json:"highestScore"`
	LowestScore   float64                   `json:"lowestScore"`
	Distribution  []ScoreDistributionBucket `json:"distribution,omitempty"`
	Source        string                    `json:"source,omitempty"`
}

// UserPercentile 用户在单张试卷上的百分位
type UserPercentile struct {
	UserID     uint    `json:"userId"`
	TestID     uint    `json:"testId"`
	Score      float64 `json:"score"`
	Percentile float64 `json:"percentile"`
	Source     string  `json:"source,omitempty"`
}

// ScoreDistributionBucket 分数段分布（试卷统计页用）
type ScoreDistributionBucket struct {
	Label string `json:"label"` // 如 "0-10"
	Count int    `json:"count"`
}
