package worker

import (
	"context"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/repository"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/monitoring"

	"go.uber.org/zap"
)

// StuckAttemptMonitor 周期性巡检卡在 processing 的考试。
// 评分任务在 processing 和 submitted 之间丢失（进程崩溃、重试耗尽）时
// 状态停在 processing，这里只报警不自动修复，补偿由运维重投评分任务完成。
type StuckAttemptMonitor struct {
	AttemptRepo *repository.AttemptRepository
	Threshold   time.Duration
	Interval    time.Duration
}

func NewStuckAttemptMonitor(attemptRepo *repository.AttemptRepository, threshold time.Duration) *StuckAttemptMonitor {
	return &StuckAttemptMonitor{
		AttemptRepo: attemptRepo,
		Threshold:   threshold,
		Interval:    time.Minute,
	}
}

func (m *StuckAttemptMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scan()
		}
	}
}

func (m *StuckAttemptMonitor) scan() {
	before := time.Now().Add(-m.Threshold)

	count, err := m.AttemptRepo.CountStuckProcessing(before)
	if err != nil {
		logger.Log.Warn("Stuck attempt scan failed", zap.Error(err))
		return
	}

	monitoring.StuckAttempts.Set(float64(count))

	if count == 0 {
		return
	}

	attempts, err := m.AttemptRepo.ListStuckProcessing(before, 20)
	if err != nil {
		logger.Log.Warn("Failed to list stuck attempts", zap.Error(err))
		return
	}
	ids := make([]uint, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}

	logger.Log.Warn("Attempts stuck in processing",
		zap.Int64("count", count),
		zap.Duration("threshold", m.Threshold),
		zap.Uints("attemptIds", ids))
}
