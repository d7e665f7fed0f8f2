// 手动重投卡住的评分任务
//
// 评分任务在进程崩溃或重试耗尽后丢失时，对应考试会停在 processing，
// 监控（attempts_stuck_processing）告警后由运维执行本脚本补偿。
// 队列不可用时任务就地同步执行，跑完脚本即完成评分。
//
// 用法: go run scripts/requeue_stuck.go

package main

import (
	"context"
	"log"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/config"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/queue"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/repository"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/service"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/worker"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/database"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"
)

const requeueBatchLimit = 500

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	attempts := repository.NewAttemptRepository(db)
	responses := repository.NewResponseRepository(db)
	tests := repository.NewTestRepository(db)
	questions := repository.NewQuestionRepository(db)

	registry := queue.NewRegistry()
	rdb, redisErr := database.InitRedis(&cfg.Redis)

	var dispatcher queue.Dispatcher
	if cfg.Queue.Enabled && redisErr == nil {
		dispatcher = queue.NewRedisQueue(rdb, queue.PoliciesFromConfig(&cfg.Queue), registry)
	} else {
		log.Println("队列不可用，评分任务将同步执行")
		dispatcher = queue.NewInlineDispatcher(registry)
	}

	svc := service.NewAttemptService(attempts, responses, tests, questions, dispatcher)
	analytics := service.NewAnalyticsService(attempts, tests, rdb, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
	registry.Register(queue.JobScoreTest, worker.NewScoringWorker(svc).Handle)
	registry.Register(queue.JobComputeAnalytics, worker.NewAnalyticsWorker(analytics).Handle)

	before := time.Now().Add(-time.Duration(cfg.Worker.StuckAfterMinutes) * time.Minute)
	stuck, err := attempts.ListStuckProcessing(before, requeueBatchLimit)
	if err != nil {
		log.Fatalf("查询卡住的考试失败: %v", err)
	}
	if len(stuck) == 0 {
		log.Println("没有卡住的考试")
		return
	}

	log.Printf("找到 %d 场卡在 processing 的考试，重投评分任务...", len(stuck))
	ctx := context.Background()
	for _, attempt := range stuck {
		if _, err := dispatcher.Dispatch(ctx, queue.JobScoreTest, queue.ScoreTestPayload{AttemptID: attempt.ID}); err != nil {
			log.Printf("attempt %d 重投失败: %v", attempt.ID, err)
		}
	}
	log.Println("完成！")
}
