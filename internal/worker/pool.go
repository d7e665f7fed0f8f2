package worker

import (
	"context"
	"sync"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/queue"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/monitoring"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const dequeueTimeout = 2 * time.Second

// Pool 单一任务类型的消费池：固定数量的消费协程从队列取任务执行，
// 共享限速器压住每秒处理量，失败任务交回队列按退避重试。
type Pool struct {
	Queue       *queue.RedisQueue
	Registry    *queue.Registry
	Kind        queue.JobKind
	Concurrency int
	Limiter     *rate.Limiter
}

func NewPool(q *queue.RedisQueue, registry *queue.Registry, kind queue.JobKind, concurrency int, limiter *rate.Limiter) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{
		Queue:       q,
		Registry:    registry,
		Kind:        kind,
		Concurrency: concurrency,
		Limiter:     limiter,
	}
}

// Run 启动消费协程并阻塞到 ctx 取消、所有协程退出
func (p *Pool) Run(ctx context.Context) {
	logger.Log.Info("Worker pool started",
		zap.String("kind", string(p.Kind)),
		zap.Int("concurrency", p.Concurrency))

	var wg sync.WaitGroup
	for i := 0; i < p.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.consume(ctx)
		}()
	}
	wg.Wait()

	logger.Log.Info("Worker pool stopped", zap.String("kind", string(p.Kind)))
}

func (p *Pool) consume(ctx context.Context) {
	for {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return
			}
		}

		job, err := p.Queue.Dequeue(ctx, p.Kind, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Warn("Dequeue failed, backing off",
				zap.String("kind", string(p.Kind)),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		p.process(ctx, job)
	}
}

func (p *Pool) process(ctx context.Context, job *queue.Job) {
	err := p.Registry.Handle(ctx, job)
	job.Attempts++
	if err != nil {
		p.Queue.Retry(ctx, job, err)
		return
	}
	monitoring.JobsProcessed.WithLabelValues(string(p.Kind), "ok").Inc()
}
