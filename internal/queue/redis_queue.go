package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	keyPrefix       = "exam:jobs:"
	delayedSuffix   = ":delayed"
	moveInterval    = time.Second
	moveBatchSize   = 100
	dispatchTimeout = 2 * time.Second
)

// RedisQueue Redis 上的任务队列：每种任务一个就绪 list（LPUSH/BRPOP），
// 外加一个按到期时间排序的延迟 zset 放重试任务，搬运协程到点把任务搬回就绪队列。
// Redis 掉线时 Dispatch 就地降级为同步执行，绝不把投递失败抛给调用方。
type RedisQueue struct {
	rdb      *redis.Client
	policies map[JobKind]RetryPolicy
	registry *Registry
}

func NewRedisQueue(rdb *redis.Client, policies map[JobKind]RetryPolicy, registry *Registry) *RedisQueue {
	return &RedisQueue{
		rdb:      rdb,
		policies: policies,
		registry: registry,
	}
}

func readyKey(kind JobKind) string {
	return keyPrefix + string(kind)
}

func delayedKey(kind JobKind) string {
	return keyPrefix + string(kind) + delayedSuffix
}

func (q *RedisQueue) Dispatch(ctx context.Context, kind JobKind, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	policy := q.policies[kind]
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	job := &Job{
		ID:            uuid.New().String(),
		Kind:          kind,
		Payload:       data,
		Attempts:      0,
		MaxAttempts:   policy.MaxAttempts,
		BackoffBaseMS: policy.Backoff.Milliseconds(),
		CreatedAt:     time.Now(),
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	pushCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	if err := q.rdb.LPush(pushCtx, readyKey(kind), raw).Err(); err != nil {
		// 队列不可用降级为同步执行，业务调用照常返回
		monitoring.QueueFallbacks.WithLabelValues(string(kind)).Inc()
		logger.Log.Warn("Queue unavailable, running job inline",
			zap.String("kind", string(kind)),
			zap.Error(err))
		runInline(ctx, q.registry, job)
		return "", nil
	}

	return job.ID, nil
}

// Dequeue 阻塞取一个任务，超时无任务返回 (nil, nil)。
// 反序列化失败的脏数据记失败指标后丢弃，不卡住消费循环。
func (q *RedisQueue) Dequeue(ctx context.Context, kind JobKind, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, readyKey(kind)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		monitoring.JobsProcessed.WithLabelValues(string(kind), "failed").Inc()
		logger.Log.Error("Dropping undecodable job",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry 处理失败后的重试调度。次数未用完进延迟队列，用完记失败并丢弃。
// 调用前 job.Attempts 已经包含本次执行。
func (q *RedisQueue) Retry(ctx context.Context, job *Job, cause error) {
	if job.Attempts >= job.MaxAttempts {
		monitoring.JobsProcessed.WithLabelValues(string(job.Kind), "failed").Inc()
		logger.Log.Error("Job attempts exhausted",
			zap.String("kind", string(job.Kind)),
			zap.String("jobId", job.ID),
			zap.Int("attempts", job.Attempts),
			zap.Error(cause))
		return
	}

	delay := job.NextBackoff()
	raw, err := json.Marshal(job)
	if err != nil {
		logger.Log.Error("Failed to marshal job for retry", zap.Error(err))
		return
	}

	readyAt := time.Now().Add(delay)
	if err := q.rdb.ZAdd(ctx, delayedKey(job.Kind), &redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: raw,
	}).Err(); err != nil {
		logger.Log.Error("Failed to schedule retry",
			zap.String("kind", string(job.Kind)),
			zap.String("jobId", job.ID),
			zap.Error(err))
		return
	}

	monitoring.JobRetries.WithLabelValues(string(job.Kind)).Inc()
	logger.Log.Warn("Job scheduled for retry",
		zap.String("kind", string(job.Kind)),
		zap.String("jobId", job.ID),
		zap.Int("attempts", job.Attempts),
		zap.Duration("delay", delay),
		zap.Error(cause))
}

// Run 启动延迟任务搬运循环，ctx 取消后退出
func (q *RedisQueue) Run(ctx context.Context) {
	ticker := time.NewTicker(moveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for kind := range q.policies {
				q.moveDue(ctx, kind)
			}
		}
	}
}

// moveDue 把到期的延迟任务搬回就绪队列。先 ZRem 后 LPush，
// 多实例并发搬运时同一个任务只会被搬一次。
func (q *RedisQueue) moveDue(ctx context.Context, kind JobKind) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.rdb.ZRangeByScore(ctx, delayedKey(kind), &redis.ZRangeBy{
		Min:   "0",
		Max:   now,
		Count: moveBatchSize,
	}).Result()
	if err != nil && err != redis.Nil {
		logger.Log.Warn("Failed to read delayed jobs",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return
	}

	for _, member := range members {
		removed, err := q.rdb.ZRem(ctx, delayedKey(kind), member).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, readyKey(kind), member).Err(); err != nil {
			logger.Log.Error("Failed to requeue delayed job",
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
	}
}

// Depth 队列深度（就绪 + 延迟），健康检查用
func (q *RedisQueue) Depth(ctx context.Context, kind JobKind) (ready, delayed int64, err error) {
	ready, err = q.rdb.LLen(ctx, readyKey(kind)).Result()
	if err != nil {
		return 0, 0, err
	}
	delayed, err = q.rdb.ZCard(ctx, delayedKey(kind)).Result()
	if err != nil {
		return 0, 0, err
	}
	return ready, delayed, nil
}
