package controller

import (
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/service"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	Service *service.TestService
}

func NewTestController(svc *service.TestService) *TestController {
	return &TestController{Service: svc}
}

// @Summary 已发布试卷列表
// @Tags 试卷模块
// @Produce json
// @Security BearerAuth
// @Param subject query string false "科目"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/tests [get]
func (c *TestController) ListTests(ctx *gin.Context) {
	subject := ctx.Query("subject")
	page, limit := util.ParsePagination(ctx.DefaultQuery("page", "1"), ctx.DefaultQuery("limit", "20"))

	tests, total, err := c.Service.ListPublished(subject, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.Page(tests, total, page, limit))
}

// @Summary 试卷详情
// @Tags 试卷模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/tests/{id} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	testID := util.MustParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	detail, err := c.Service.GetDetail(testID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}
