package worker

import (
	"context"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/queue"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/service"
)

// ScoringWorker 消费评分任务。评分、落库、投递统计任务的完整链路
// 在 AttemptService.ScoreAndFinalize 里，这里只负责解包和调用。
type ScoringWorker struct {
	Attempts *service.AttemptService
}

func NewScoringWorker(attempts *service.AttemptService) *ScoringWorker {
	return &ScoringWorker{Attempts: attempts}
}

func (w *ScoringWorker) Handle(ctx context.Context, job *queue.Job) error {
	var payload queue.ScoreTestPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	return w.Attempts.ScoreAndFinalize(payload.AttemptID)
}
