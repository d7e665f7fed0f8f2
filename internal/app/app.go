package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/config"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/controller"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/queue"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/repository"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/service"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/worker"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/database"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/monitoring"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/security"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	stopWorkers     context.CancelFunc
	tracerShutdown  func(context.Context) error
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	test     *repository.TestRepository
	question *repository.QuestionRepository
	attempt  *repository.AttemptRepository
	response *repository.ResponseRepository
}

type services struct {
	test      *service.TestService
	attempt   *service.AttemptService
	analytics *service.AnalyticsService
}

type controllers struct {
	test      *controller.TestController
	attempt   *controller.AttemptController
	analytics *controller.AnalyticsController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热更新入口，由 configwatcher 在配置文件变更后调用
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		test:     repository.NewTestRepository(db),
		question: repository.NewQuestionRepository(db),
		attempt:  repository.NewAttemptRepository(db),
		response: repository.NewResponseRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client, dispatcher queue.Dispatcher) *services {
	s := &services{}

	s.test = service.NewTestService(repos.test, repos.question)
	s.attempt = service.NewAttemptService(repos.attempt, repos.response, repos.test, repos.question, dispatcher)
	s.analytics = service.NewAnalyticsService(repos.attempt, repos.test, rdb, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client, redisQueue *queue.RedisQueue) *controllers {
	return &controllers{
		test:      controller.NewTestController(s.test),
		attempt:   controller.NewAttemptController(s.attempt),
		analytics: controller.NewAnalyticsController(s.analytics),
		health:    controller.NewHealthController(db, rdb, redisQueue),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 启动延迟任务搬运、评分/统计 worker 池和卡单监控。
// 返回的 cancel 在优雅停机时统一回收这些协程。
func (a *App) startBackgroundTasks(cfg *config.Config, redisQueue *queue.RedisQueue, registry *queue.Registry, repos *repositories, jobLimiter *rate.Limiter) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())

	if redisQueue != nil {
		go redisQueue.Run(ctx)

		scoringPool := worker.NewPool(redisQueue, registry, queue.JobScoreTest, cfg.Worker.ScoringConcurrency, jobLimiter)
		go scoringPool.Run(ctx)

		analyticsPool := worker.NewPool(redisQueue, registry, queue.JobComputeAnalytics, cfg.Worker.AnalyticsConcurrency, jobLimiter)
		go analyticsPool.Run(ctx)
	}

	monitor := worker.NewStuckAttemptMonitor(repos.attempt, time.Duration(cfg.Worker.StuckAfterMinutes)*time.Minute)
	go monitor.Run(ctx)

	return cancel
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	// release 模式不自动迁移，-migrate 参数可强制执行
	autoMigrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, autoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis 掉线不拦启动：队列降级为同步执行，统计缓存直查库
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, queue and cache degraded", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	// 注册表先建好，异步消费和同步降级共用同一份处理函数
	registry := queue.NewRegistry()

	var dispatcher queue.Dispatcher
	var redisQueue *queue.RedisQueue
	if cfg.Queue.Enabled && rdb != nil {
		redisQueue = queue.NewRedisQueue(rdb, queue.PoliciesFromConfig(&cfg.Queue), registry)
		dispatcher = redisQueue
	} else {
		dispatcher = queue.NewInlineDispatcher(registry)
		logger.Log.Warn("Job queue disabled, jobs run inline")
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb, dispatcher)
	app.services = services
	controllers := app.initControllers(services, db, rdb, redisQueue)

	// 处理函数注册必须先于首个 Dispatch
	registry.Register(queue.JobScoreTest, worker.NewScoringWorker(services.attempt).Handle)
	registry.Register(queue.JobComputeAnalytics, worker.NewAnalyticsWorker(services.analytics).Handle)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("exam-core", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerShutdown = tp.Shutdown
	}

	app.registerRoutes(router, controllers, repos, cfg)

	// worker 吞吐限速器，支持配置热更新
	burst := int(cfg.Worker.JobsPerSecond)
	if burst < 1 {
		burst = 1
	}
	jobLimiter := rate.NewLimiter(rate.Limit(cfg.Worker.JobsPerSecond), burst)
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		jobLimiter.SetLimit(rate.Limit(newCfg.Worker.JobsPerSecond))
	})

	app.stopWorkers = app.startBackgroundTasks(cfg, redisQueue, registry, repos, jobLimiter)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 回收队列搬运和 worker 协程
	if a.stopWorkers != nil {
		a.stopWorkers()
	}

	// 关闭服务
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
