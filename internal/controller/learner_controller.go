package controller

import (
	"errors"
	"strconv"

	"pathway_backend/internal/service"
	"pathway_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LearnerController struct {
	LearnerService *service.LearnerService
}

func NewLearnerController(learnerService *service.LearnerService) *LearnerController {
	return &LearnerController{LearnerService: learnerService}
}

// @Summary 获取学习者档案
// @Description 返回掌握状态、偏好和版本号；未知学习者返回空档案
// @Tags 学习者
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param learnerId path string true "学习者ID"
// @Success 200 {object} util.Response
// @Router /api/learners/{learnerId}/profile [get]
func (c *LearnerController) GetProfile(ctx *gin.Context) {
	profile, err := c.LearnerService.GetProfile(ctx.Param("learnerId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

type preferencesRequest struct {
	Preferences map[string]string `json:"preferences" binding:"required"`
}

// @Summary 更新学习偏好
// @Description 合并写入偏好键值（如 modality: visual）
// @Tags 学习者
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param learnerId path string true "学习者ID"
// @Param preferences body preferencesRequest true "偏好键值对"
// @Success 200 {object} util.Response
// @Router /api/learners/{learnerId}/preferences [put]
func (c *LearnerController) UpdatePreferences(ctx *gin.Context) {
	var req preferencesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.LearnerService.UpdatePreferences(ctx.Param("learnerId"), req.Preferences)
	if err != nil {
		if errors.Is(err, util.ErrProfileConflict) {
			util.Conflict(ctx, "profile was modified concurrently, please retry")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// @Summary 获取成绩履历
// @Description 分页返回活动结果日志，最近的在前
// @Tags 学习者
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param learnerId path string true "学习者ID"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/learners/{learnerId}/history [get]
func (c *LearnerController) History(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	entries, total, err := c.LearnerService.History(ctx.Param("learnerId"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  entries,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
