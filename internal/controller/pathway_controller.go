package controller

import (
	"errors"
	"net/http"
	"strconv"

	"pathway_backend/internal/pathway"
	"pathway_backend/internal/service"
	"pathway_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PathwayController struct {
	PathwayService *service.PathwayService
}

func NewPathwayController(pathwayService *service.PathwayService) *PathwayController {
	return &PathwayController{PathwayService: pathwayService}
}

// @Summary 生成学习路径
// @Description 根据学习者档案和课程图谱生成下一段个性化学习路径
// @Tags 路径引擎
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param learnerId path string true "学习者ID"
// @Param maxLos query int false "本段最多目标数"
// @Param maxItems query int false "每个目标最多活动数"
// @Param enrichment query bool false "全部掌握后是否返回拓展内容"
// @Success 200 {object} util.Response
// @Router /api/learners/{learnerId}/segment [get]
func (c *PathwayController) GenerateSegment(ctx *gin.Context) {
	learnerID := ctx.Param("learnerId")

	maxLOs, _ := strconv.Atoi(ctx.DefaultQuery("maxLos", "0"))
	maxItems, _ := strconv.Atoi(ctx.DefaultQuery("maxItems", "0"))
	enrichment := ctx.Query("enrichment") == "true"

	resp, err := c.PathwayService.GenerateSegment(ctx.Request.Context(), learnerID, maxLOs, maxItems, enrichment)
	if err != nil {
		if errors.Is(err, util.ErrCatalogNotReady) {
			util.Error(ctx, http.StatusServiceUnavailable, "curriculum not published yet")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// @Summary 提交活动结果
// @Description 回流一次活动成绩，更新掌握状态并追加履历
// @Tags 路径引擎
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param learnerId path string true "学习者ID"
// @Param outcome body service.OutcomeRequest true "活动结果"
// @Success 200 {object} util.Response
// @Router /api/learners/{learnerId}/outcomes [post]
func (c *PathwayController) SubmitOutcome(ctx *gin.Context) {
	learnerID := ctx.Param("learnerId")

	var req service.OutcomeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	status, err := c.PathwayService.SubmitOutcome(ctx.Request.Context(), learnerID, req)
	if err != nil {
		var vErr *pathway.ValidationError
		switch {
		case errors.As(err, &vErr):
			util.BadRequest(ctx, vErr.Error())
		case errors.Is(err, util.ErrObjectiveNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrProfileConflict):
			util.Conflict(ctx, "profile was modified concurrently, please retry")
		case errors.Is(err, util.ErrCatalogNotReady):
			util.Error(ctx, http.StatusServiceUnavailable, "curriculum not published yet")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"loId": req.LOID, "status": status})
}

// @Summary 重学已掌握目标
// @Description 将已掌握的目标显式拉回进行中，使其重新进入路径
// @Tags 路径引擎
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param learnerId path string true "学习者ID"
// @Param loId path string true "学习目标ID"
// @Success 200 {object} util.Response
// @Router /api/learners/{learnerId}/objectives/{loId}/reteach [post]
func (c *PathwayController) Reteach(ctx *gin.Context) {
	learnerID := ctx.Param("learnerId")
	loID := ctx.Param("loId")

	err := c.PathwayService.Reteach(ctx.Request.Context(), learnerID, loID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrObjectiveNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotMastered):
			util.BadRequest(ctx, "objective is not mastered")
		case errors.Is(err, util.ErrProfileConflict):
			util.Conflict(ctx, "profile was modified concurrently, please retry")
		case errors.Is(err, util.ErrCatalogNotReady):
			util.Error(ctx, http.StatusServiceUnavailable, "curriculum not published yet")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"loId": loID, "status": "in_progress"})
}
