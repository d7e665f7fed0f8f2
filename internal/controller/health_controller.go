package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/queue"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
	Queue *queue.RedisQueue
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, q *queue.RedisQueue) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Queue: q}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 和队列状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{
		"database": "up",
	}

	// Redis 不可用时服务降级运行，不算不健康
	if c.Redis != nil {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}
	} else {
		components["redis"] = "disabled"
	}

	if c.Queue != nil && components["redis"] == "up" {
		depthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		queues := gin.H{}
		for _, kind := range []queue.JobKind{queue.JobScoreTest, queue.JobComputeAnalytics} {
			ready, delayed, err := c.Queue.Depth(depthCtx, kind)
			if err != nil {
				continue
			}
			queues[string(kind)] = gin.H{"ready": ready, "delayed": delayed}
		}
		components["queues"] = queues
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
