package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/monitoring"

	"go.uber.org/zap"
)

// Dispatcher 任务投递入口。业务代码只认这个接口，
// 启动时由装配层决定接 Redis 队列还是同步执行，调用方无感知。
// 返回的 jobID 在同步执行时为空串。
type Dispatcher interface {
	Dispatch(ctx context.Context, kind JobKind, payload interface{}) (string, error)
}

type Handler func(ctx context.Context, job *Job) error

// Registry 按任务类型注册处理函数。异步消费和同步降级走同一份注册表，
// 保证两条路径执行的是同一段代码。
type Registry struct {
	mu       sync.RWMutex
	handlers map[JobKind]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[JobKind]Handler)}
}

func (r *Registry) Register(kind JobKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

func (r *Registry) Handle(ctx context.Context, job *Job) error {
	r.mu.RLock()
	h, ok := r.handlers[job.Kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for job kind %q", job.Kind)
	}
	return h(ctx, job)
}

// InlineDispatcher 同步执行模式：队列关闭（或 Redis 不可用）时的降级路径。
// 处理函数失败只记日志，不把基础设施问题抛给提交请求。
type InlineDispatcher struct {
	Registry *Registry
}

func NewInlineDispatcher(registry *Registry) *InlineDispatcher {
	return &InlineDispatcher{Registry: registry}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, kind JobKind, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	job := &Job{
		ID:          "",
		Kind:        kind,
		Payload:     data,
		Attempts:    0,
		MaxAttempts: 1,
		CreatedAt:   time.Now(),
	}

	runInline(ctx, d.Registry, job)
	return "", nil
}

// runInline 同步执行一个任务，结果只进日志和指标
func runInline(ctx context.Context, registry *Registry, job *Job) {
	if err := registry.Handle(ctx, job); err != nil {
		monitoring.JobsProcessed.WithLabelValues(string(job.Kind), "failed").Inc()
		logger.Log.Error("Inline job failed",
			zap.String("kind", string(job.Kind)),
			zap.Error(err))
		return
	}
	monitoring.JobsProcessed.WithLabelValues(string(job.Kind), "ok").Inc()
}
