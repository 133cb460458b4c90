package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"edu_assess_backend/internal/config"
	"edu_assess_backend/internal/controller"
	"edu_assess_backend/internal/repository"
	"edu_assess_backend/internal/service"
	"edu_assess_backend/pkg/database"
	"edu_assess_backend/pkg/logger"
	"edu_assess_backend/pkg/monitoring"
	"edu_assess_backend/pkg/security"
	"edu_assess_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	// liveConfig holds the most recent config after a hot reload.
	liveConfig atomic.Pointer[config.Config]
}

type repositories struct {
	assessment *repository.AssessmentRepository
	metrics    *repository.MetricsRepository
	curriculum *repository.CurriculumRepository
}

type services struct {
	normalizer *service.NormalizerService
	validator  *service.ValidatorService
	blueprint  *service.BlueprintService
	scorer     *service.ScorerService
	assessment *service.AssessmentService
}

type controllers struct {
	assessment *controller.AssessmentController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		assessment: repository.NewAssessmentRepository(db),
		metrics:    repository.NewMetricsRepository(db),
		curriculum: repository.NewCurriculumRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.normalizer = service.NewNormalizerService()
	s.validator = service.NewValidatorService()
	s.blueprint = service.NewBlueprintService(repos.metrics, repos.curriculum, nil)
	s.scorer = service.NewScorerService(s.normalizer, s.validator)

	var archiver service.ReportArchiver
	if cfg.Storage.Enabled {
		minioArchiver, err := service.NewMinioReportArchiver(cfg)
		if err != nil {
			logger.Log.Fatal("Failed to initialize report archiver", zap.Error(err))
		}
		archiver = minioArchiver
	}

	s.assessment = service.NewAssessmentService(repos.assessment, s.blueprint, s.scorer, rdb, archiver, cfg)
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		assessment: controller.NewAssessmentController(s.assessment),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", a.CurrentConfig())
		c.Next()
	})

	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// ReloadConfig swaps in a freshly parsed config. Only values read per
// request pick up the change; server port and connections keep their
// boot-time values.
func (a *App) ReloadConfig(cfg *config.Config) {
	a.liveConfig.Store(cfg)
	logger.Log.Info("configuration reloaded")
}

func (a *App) CurrentConfig() *config.Config {
	if cfg := a.liveConfig.Load(); cfg != nil {
		return cfg
	}
	return a.Config
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

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

	if cfg.MigrateOnly {
		return app
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, db)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("assessment-platform", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

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
