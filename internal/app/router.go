package app

import (
	"strconv"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/docs"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/config"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/middleware"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/monitoring"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerTestRoutes(authGroup, c)
		a.registerAttemptRoutes(authGroup, c, cfg)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}
}

func (a *App) registerTestRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/tests", c.test.ListTests)
	rg.GET("/tests/:id", c.test.GetTest)
	rg.GET("/tests/:id/stats", c.analytics.GetTestStats)
	rg.GET("/tests/:id/percentile", c.analytics.GetMyPercentile)
	rg.POST("/tests/:id/attempts", c.attempt.StartAttempt)
}

func (a *App) registerAttemptRoutes(rg *gin.RouterGroup, c *controllers, cfg *config.Config) {
	rg.GET("/attempts/mine", c.attempt.ListMine)
	rg.GET("/attempts/:id", c.attempt.GetState)
	rg.PUT("/attempts/:id/responses/:questionId", c.attempt.SaveResponse)
	rg.GET("/attempts/:id/result", c.attempt.GetResult)
	rg.GET("/attempts/:id/review", c.attempt.GetReview)

	// 交卷接口按用户单独限流
	submitLimiter := security.KeyedRateLimiter(cfg.RateLimit.SubmitPerMinute, time.Minute, func(ctx *gin.Context) string {
		if claims := util.GetUserFromContext(ctx); claims != nil {
			return "submit:" + strconv.FormatUint(uint64(claims.UserID), 10)
		}
		return ""
	})
	rg.POST("/attempts/:id/submit", submitLimiter, c.attempt.Submit)
}
