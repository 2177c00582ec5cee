package app

import (
	"pathway_backend/docs"
	"pathway_backend/internal/config"
	"pathway_backend/internal/middleware"
	"pathway_backend/internal/util"
	"pathway_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	router.GET("/api/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c)
		a.registerCurriculumRoutes(authGroup, c)
	}
}

// 学习者侧：路径生成、结果提交与档案。学习者只能访问自己的数据，
// 课程作者和管理员可代查。
func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	learners := rg.Group("/learners/:learnerId")
	learners.Use(middleware.LearnerScope("learnerId"))
	{
		learners.GET("/segment", c.pathway.GenerateSegment)
		learners.POST("/outcomes", c.pathway.SubmitOutcome)
		learners.POST("/objectives/:loId/reteach", c.pathway.Reteach)

		learners.GET("/profile", c.learner.GetProfile)
		learners.PUT("/preferences", c.learner.UpdatePreferences)
		learners.GET("/history", c.learner.History)
	}
}

// 课程作者侧：图谱与内容管理，发布快照
func (a *App) registerCurriculumRoutes(rg *gin.RouterGroup, c *controllers) {
	curriculum := rg.Group("/curriculum")
	curriculum.Use(middleware.RoleMiddleware(util.RoleAuthor, util.RoleAdmin))
	{
		curriculum.POST("/objectives", c.curriculum.CreateObjective)
		curriculum.GET("/objectives", c.curriculum.ListObjectives)
		curriculum.GET("/objectives/:id", c.curriculum.GetObjective)
		curriculum.PUT("/objectives/:id", c.curriculum.UpdateObjective)
		curriculum.DELETE("/objectives/:id", c.curriculum.DeleteObjective)

		curriculum.POST("/content", c.curriculum.CreateContentItem)
		curriculum.GET("/content", c.curriculum.ListContentItems)
		curriculum.GET("/content/:id", c.curriculum.GetContentItem)
		curriculum.PUT("/content/:id", c.curriculum.UpdateContentItem)
		curriculum.DELETE("/content/:id", c.curriculum.DeleteContentItem)
		curriculum.POST("/content/:id/asset", c.curriculum.UploadAsset)

		curriculum.POST("/publish", c.curriculum.Publish)
	}
}
