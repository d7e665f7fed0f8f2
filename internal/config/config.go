package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	Queue     QueueConfig     `mapstructure:"queue"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Cache     CacheConfig     `mapstructure:"cache"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"` // release 模式下也执行数据库迁移
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests     int `mapstructure:"max_requests"`
	WindowMinutes   int `mapstructure:"window_minutes"`
	SubmitPerMinute int `mapstructure:"submit_per_minute"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// QueueConfig 异步任务队列配置。Enabled=false 时所有任务降级为同步执行。
type QueueConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	ScoreAttempts      int  `mapstructure:"score_attempts"`
	ScoreBackoffMS     int  `mapstructure:"score_backoff_ms"`
	AnalyticsAttempts  int  `mapstructure:"analytics_attempts"`
	AnalyticsBackoffMS int  `mapstructure:"analytics_backoff_ms"`
}

type WorkerConfig struct {
	ScoringConcurrency   int     `mapstructure:"scoring_concurrency"`
	AnalyticsConcurrency int     `mapstructure:"analytics_concurrency"`
	JobsPerSecond        float64 `mapstructure:"jobs_per_second"`
	StuckAfterMinutes    int     `mapstructure:"stuck_after_minutes"`
}

type CacheConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("GATEANDTECH")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Queue
	viper.BindEnv("queue.enabled", "QUEUE_ENABLED")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults 填充未配置项的运行默认值，保证零配置也能跑通评分链路。
func applyDefaults(cfg *Config) {
	if cfg.Queue.ScoreAttempts <= 0 {
		cfg.Queue.ScoreAttempts = 3
	}
	if cfg.Queue.ScoreBackoffMS <= 0 {
		cfg.Queue.ScoreBackoffMS = 2000
	}
	if cfg.Queue.AnalyticsAttempts <= 0 {
		cfg.Queue.AnalyticsAttempts = 3
	}
	if cfg.Queue.AnalyticsBackoffMS <= 0 {
		cfg.Queue.AnalyticsBackoffMS = 1000
	}
	if cfg.Worker.ScoringConcurrency <= 0 {
		cfg.Worker.ScoringConcurrency = 5
	}
	if cfg.Worker.AnalyticsConcurrency <= 0 {
		cfg.Worker.AnalyticsConcurrency = 5
	}
	if cfg.Worker.JobsPerSecond <= 0 {
		cfg.Worker.JobsPerSecond = 20
	}
	if cfg.Worker.StuckAfterMinutes <= 0 {
		cfg.Worker.StuckAfterMinutes = 10
	}
	if cfg.Cache.TTLMinutes <= 0 {
		cfg.Cache.TTLMinutes = 5
	}
	if cfg.RateLimit.SubmitPerMinute <= 0 {
		cfg.RateLimit.SubmitPerMinute = 10
	}
}
