package controller

import (
	"errors"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/service"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

// respondServiceError 考试域错误到 HTTP 状态码的映射：
// 资源不存在 404，无权访问 403，状态机拒绝 409，其余按内部错误兜底。
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrTestNotFound),
		errors.Is(err, util.ErrQuestionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied),
		errors.Is(err, util.ErrTestNotPublished),
		errors.Is(err, util.ErrTestNotPurchased):
		util.Forbidden(ctx, err.Error())
	case errors.Is(err, util.ErrTestAlreadySubmitted),
		errors.Is(err, util.ErrAttemptNotActive),
		errors.Is(err, util.ErrAttemptNotFinished):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrQuestionNotInTest):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary 开始考试（已有进行中的考试则续考）
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 201 {object} util.Response
// @Router /api/tests/{id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	attempt, err := c.Service.StartAttempt(user.UserID, testID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Created(ctx, attempt)
}

// @Summary 获取考试状态（续考恢复）
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) GetState(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID := util.MustParseUint(ctx.Param("id"))
	detail, err := c.Service.GetAttemptState(user.UserID, attemptID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// @Summary 保存单题作答（自动保存，幂等）
// @Tags 考试模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Param questionId path int true "题目ID"
// @Param body body service.SaveResponseReq true "作答内容"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/responses/{questionId} [put]
func (c *AttemptController) SaveResponse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID := util.MustParseUint(ctx.Param("id"))
	questionID := util.MustParseUint(ctx.Param("questionId"))

	var req service.SaveResponseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.Service.SaveResponse(user.UserID, attemptID, questionID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// @Summary 交卷
// @Tags 考试模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Param body body service.SubmitAttemptReq false "交卷信息"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID := util.MustParseUint(ctx.Param("id"))

	var req service.SubmitAttemptReq
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.Service.SubmitAttempt(user.UserID, attemptID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

// @Summary 获取考试成绩
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/result [get]
func (c *AttemptController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID := util.MustParseUint(ctx.Param("id"))
	result, err := c.Service.GetAttemptResult(user.UserID, attemptID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 考后回顾（标准答案与解析）
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/review [get]
func (c *AttemptController) GetReview(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID := util.MustParseUint(ctx.Param("id"))
	review, err := c.Service.GetAttemptReview(user.UserID, attemptID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, review)
}

// @Summary 我的考试记录
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param testId query int false "按试卷过滤"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/attempts/mine [get]
func (c *AttemptController) ListMine(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.MustParseUint(ctx.DefaultQuery("testId", "0"))
	page, limit := util.ParsePagination(ctx.DefaultQuery("page", "1"), ctx.DefaultQuery("limit", "20"))

	attempts, total, err := c.Service.ListUserAttempts(user.UserID, testID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.Page(attempts, total, page, limit))
}
