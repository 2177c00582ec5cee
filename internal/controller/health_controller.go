package controller

import (
	"net/http"

	"pathway_backend/internal/service"
	"pathway_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB         *gorm.DB
	Curriculum *service.CurriculumService
}

func NewHealthController(db *gorm.DB, curriculum *service.CurriculumService) *HealthController {
	return &HealthController{DB: db, Curriculum: curriculum}
}

// @Summary 健康检查
// @Description 检查数据库连接与课程快照状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	catalogState := "published"
	version := ""
	if _, v, err := c.Curriculum.Snapshot(); err != nil {
		catalogState = "not_ready"
	} else {
		version = v
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"database": "up",
			"catalog":  catalogState,
		},
		"catalogVersion": version,
	})
}
