package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/config"

	"github.com/go-redis/redis/v8"
)

// InitRedis 连接 Redis。连接失败只返回错误，由调用方决定是否降级运行
// （队列和缓存都能在无 Redis 时退化为同步/直算模式）。
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return rdb, nil
}
