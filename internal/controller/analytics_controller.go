package controller

import (
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/service"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	Service *service.AnalyticsService
}

func NewAnalyticsController(svc *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Service: svc}
}

// @Summary 获取试卷聚合统计
// @Description 获取试卷的总尝试数、平均分、最高最低分和分数分布
// @Tags 统计模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/tests/{id}/stats [get]
func (c *AnalyticsController) GetTestStats(ctx *gin.Context) {
	testID := util.MustParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "Invalid test ID")
		return
	}

	stats, err := c.Service.GetTestStats(testID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}

// @Summary 获取我的百分位
// @Description 获取当前用户在指定试卷上的百分位排名
// @Tags 统计模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/tests/{id}/percentile [get]
func (c *AnalyticsController) GetMyPercentile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "Invalid test ID")
		return
	}

	result, err := c.Service.GetUserPercentile(user.UserID, testID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
