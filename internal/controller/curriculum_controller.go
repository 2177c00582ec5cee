package controller

import (
	"errors"
	"strconv"

	"pathway_backend/internal/pathway"
	"pathway_backend/internal/service"
	"pathway_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CurriculumController struct {
	CurriculumService *service.CurriculumService
}

func NewCurriculumController(curriculumService *service.CurriculumService) *CurriculumController {
	return &CurriculumController{CurriculumService: curriculumService}
}

// @Summary 创建学习目标
// @Description 在草稿课程中新增学习目标
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param objective body service.ObjectiveRequest true "学习目标"
// @Success 201 {object} util.Response
// @Router /api/curriculum/objectives [post]
func (c *CurriculumController) CreateObjective(ctx *gin.Context) {
	var req service.ObjectiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lo, err := c.CurriculumService.CreateObjective(req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, lo)
}

// @Summary 获取学习目标
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "目标ID"
// @Success 200 {object} util.Response
// @Router /api/curriculum/objectives/{id} [get]
func (c *CurriculumController) GetObjective(ctx *gin.Context) {
	lo, err := c.CurriculumService.GetObjective(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrObjectiveNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lo)
}

// @Summary 列出学习目标
// @Description 按声明顺序返回，可按学科过滤
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Param subject query string false "学科"
// @Success 200 {object} util.Response
// @Router /api/curriculum/objectives [get]
func (c *CurriculumController) ListObjectives(ctx *gin.Context) {
	los, err := c.CurriculumService.ListObjectives(ctx.Query("subject"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, los)
}

// @Summary 更新学习目标
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "目标ID"
// @Param objective body service.ObjectiveRequest true "学习目标"
// @Success 200 {object} util.Response
// @Router /api/curriculum/objectives/{id} [put]
func (c *CurriculumController) UpdateObjective(ctx *gin.Context) {
	var req service.ObjectiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lo, err := c.CurriculumService.UpdateObjective(ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, util.ErrObjectiveNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lo)
}

// @Summary 删除学习目标
// @Description 仍被前置或内容引用的目标拒绝删除
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "目标ID"
// @Success 200 {object} util.Response
// @Router /api/curriculum/objectives/{id} [delete]
func (c *CurriculumController) DeleteObjective(ctx *gin.Context) {
	if err := c.CurriculumService.DeleteObjective(ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrObjectiveReferenced) {
			util.Conflict(ctx, "objective is still referenced by prerequisites or content")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 创建内容
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param content body service.ContentItemRequest true "内容"
// @Success 201 {object} util.Response
// @Router /api/curriculum/content [post]
func (c *CurriculumController) CreateContentItem(ctx *gin.Context) {
	var req service.ContentItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	item, err := c.CurriculumService.CreateContentItem(req)
	if err != nil {
		var vErr *pathway.ValidationError
		if errors.As(err, &vErr) {
			util.BadRequest(ctx, vErr.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, item)
}

// @Summary 获取内容
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response
// @Router /api/curriculum/content/{id} [get]
func (c *CurriculumController) GetContentItem(ctx *gin.Context) {
	item, err := c.CurriculumService.GetContentItem(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrContentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, item)
}

// @Summary 分页列出内容
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/curriculum/content [get]
func (c *CurriculumController) ListContentItems(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	items, total, err := c.CurriculumService.ListContentItems(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary 更新内容
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "内容ID"
// @Param content body service.ContentItemRequest true "内容"
// @Success 200 {object} util.Response
// @Router /api/curriculum/content/{id} [put]
func (c *CurriculumController) UpdateContentItem(ctx *gin.Context) {
	var req service.ContentItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	item, err := c.CurriculumService.UpdateContentItem(ctx.Param("id"), req)
	if err != nil {
		var vErr *pathway.ValidationError
		switch {
		case errors.Is(err, util.ErrContentNotFound):
			util.NotFound(ctx)
		case errors.As(err, &vErr):
			util.BadRequest(ctx, vErr.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, item)
}

// @Summary 删除内容
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response
// @Router /api/curriculum/content/{id} [delete]
func (c *CurriculumController) DeleteContentItem(ctx *gin.Context) {
	if err := c.CurriculumService.DeleteContentItem(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 上传内容附件
// @Description 为内容挂习题 PDF、视频等附件，存对象存储
// @Tags 课程管理
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "内容ID"
// @Param file formData file true "附件文件"
// @Success 200 {object} util.Response
// @Router /api/curriculum/content/{id}/asset [post]
func (c *CurriculumController) UploadAsset(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	url, err := c.CurriculumService.UploadAsset(ctx.Request.Context(), ctx.Param("id"),
		file.Filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, util.ErrContentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": url})
}

// @Summary 发布课程快照
// @Description 校验草稿课程（DAG、引用完整性）并替换在线快照
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/curriculum/publish [post]
func (c *CurriculumController) Publish(ctx *gin.Context) {
	version, err := c.CurriculumService.Publish()
	if err != nil {
		var cycleErr *pathway.CycleError
		var danglingErr *pathway.DanglingRefError
		var vErr *pathway.ValidationError
		switch {
		case errors.As(err, &cycleErr), errors.As(err, &danglingErr), errors.As(err, &vErr):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"version": version})
}
