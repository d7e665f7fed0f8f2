package queue

import (
	"encoding/json"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/config"
)

type JobKind string

const (
	JobScoreTest        JobKind = "scoreTest"
	JobComputeAnalytics JobKind = "computeAnalytics"
)

// Job 队列任务信封。Payload 按 Kind 解码，Attempts 记录已执行次数。
type Job struct {
	ID            string          `json:"id"`
	Kind          JobKind         `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"maxAttempts"`
	BackoffBaseMS int64           `json:"backoffBaseMs"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (j *Job) DecodePayload(v interface{}) error {
	return json.Unmarshal(j.Payload, v)
}

// NextBackoff 第 Attempts 次执行失败后的重试间隔：base·2^(attempts-1)
func (j *Job) NextBackoff() time.Duration {
	base := time.Duration(j.BackoffBaseMS) * time.Millisecond
	if base <= 0 {
		base = time.Second
	}
	n := j.Attempts - 1
	if n < 0 {
		n = 0
	}
	return base << uint(n)
}

// ScoreTestPayload 评分任务：对已交卷的 attempt 跑整卷评分
type ScoreTestPayload struct {
	AttemptID uint `json:"attemptId"`
}

// ComputeAnalyticsPayload 统计任务：刷新用户百分位和试卷聚合
type ComputeAnalyticsPayload struct {
	UserID uint `json:"userId"`
	TestID uint `json:"testId"`
}

// RetryPolicy 每种任务的重试策略，由配置给出
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func PoliciesFromConfig(cfg *config.QueueConfig) map[JobKind]RetryPolicy {
	return map[JobKind]RetryPolicy{
		JobScoreTest: {
			MaxAttempts: cfg.ScoreAttempts,
			Backoff:     time.Duration(cfg.ScoreBackoffMS) * time.Millisecond,
		},
		JobComputeAnalytics: {
			MaxAttempts: cfg.AnalyticsAttempts,
			Backoff:     time.Duration(cfg.AnalyticsBackoffMS) * time.Millisecond,
		},
	}
}
