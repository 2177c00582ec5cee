package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pathway_backend/internal/config"
	"pathway_backend/internal/controller"
	"pathway_backend/internal/pathway"
	"pathway_backend/internal/repository"
	"pathway_backend/internal/service"
	"pathway_backend/pkg/database"
	"pathway_backend/pkg/logger"
	"pathway_backend/pkg/monitoring"
	"pathway_backend/pkg/security"
	"pathway_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	curriculum *repository.CurriculumRepository
	profile    *repository.ProfileRepository
}

type services struct {
	storage    *service.StorageService
	curriculum *service.CurriculumService
	learner    *service.LearnerService
	pathway    *service.PathwayService
}

type controllers struct {
	pathway    *controller.PathwayController
	curriculum *controller.CurriculumController
	learner    *controller.LearnerController
	health     *controller.HealthController
}

// ReloadConfig 配置热更新回调，目前只有引擎阈值支持热调
func (a *App) ReloadConfig(cfg *config.Config) {
	a.services.pathway.ApplyEngineConfig(cfg.Engine)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		curriculum: repository.NewCurriculumRepository(db),
		profile:    repository.NewProfileRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.curriculum = service.NewCurriculumService(repos.curriculum, s.storage)
	s.learner = service.NewLearnerService(repos.profile)
	s.pathway = service.NewPathwayService(s.curriculum, repos.profile, rdb, cfg.Engine)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		pathway:    controller.NewPathwayController(s.pathway),
		curriculum: controller.NewCurriculumController(s.curriculum),
		learner:    controller.NewLearnerController(s.learner),
		health:     controller.NewHealthController(db, s.curriculum),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	// 限流默认值由 security 包兜底
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// bootstrapCurriculum 首次启动时从课程文件导入，然后发布快照。
// 课程图谱非法（环、悬挂引用）属于配置错误，直接拒绝启动。
func (a *App) bootstrapCurriculum(s *services, cfg *config.Config) {
	if cfg.Engine.CurriculumFile != "" {
		if err := s.curriculum.ImportFromFile(cfg.Engine.CurriculumFile); err != nil {
			logger.Log.Fatal("Failed to import curriculum file", zap.Error(err))
		}
	}

	count, err := s.curriculum.Repo.CountObjectives()
	if err != nil {
		logger.Log.Fatal("Failed to count objectives", zap.Error(err))
	}
	if count == 0 {
		logger.Log.Warn("curriculum is empty, engine endpoints return 503 until first publish")
		return
	}

	version, err := s.curriculum.Publish()
	if err != nil {
		var cycleErr *pathway.CycleError
		if errors.As(err, &cycleErr) {
			logger.Log.Fatal("Curriculum has a prerequisite cycle",
				zap.Strings("path", cycleErr.Path))
		}
		logger.Log.Fatal("Failed to publish curriculum snapshot", zap.Error(err))
	}
	logger.Log.Info("curriculum snapshot ready", zap.String("version", version))
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("pathway-engine", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.bootstrapCurriculum(services, cfg)

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
