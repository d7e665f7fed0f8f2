package worker

import (
	"context"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/queue"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/service"
)

// AnalyticsWorker 消费统计任务：刷新百分位和试卷聚合缓存
type AnalyticsWorker struct {
	Analytics *service.AnalyticsService
}

func NewAnalyticsWorker(analytics *service.AnalyticsService) *AnalyticsWorker {
	return &AnalyticsWorker{Analytics: analytics}
}

func (w *AnalyticsWorker) Handle(ctx context.Context, job *queue.Job) error {
	var payload queue.ComputeAnalyticsPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	return w.Analytics.RecomputeForSubmission(payload.UserID, payload.TestID)
}
