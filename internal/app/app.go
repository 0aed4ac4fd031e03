package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skilltrack_backend/internal/catalog"
	"skilltrack_backend/internal/config"
	"skilltrack_backend/internal/controller"
	"skilltrack_backend/internal/ledger"
	"skilltrack_backend/internal/repository"
	"skilltrack_backend/internal/scheduler"
	"skilltrack_backend/internal/service"
	"skilltrack_backend/pkg/cache"
	"skilltrack_backend/pkg/database"
	"skilltrack_backend/pkg/logger"
	"skilltrack_backend/pkg/monitoring"
	"skilltrack_backend/pkg/security"
	"skilltrack_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const redisKeyPrefix = "skilltrack:"

type App struct {
	Config  *config.Config
	Router  *gin.Engine
	Store   *Store
	Redis   *redis.Client
	Catalog *catalog.Catalog
	Ledger  *ledger.Ledger

	services  *services
	scheduler *scheduler.Scheduler
	tracer    *sdktrace.TracerProvider
	ctx       context.Context
	cancel    context.CancelFunc
}

// Store HTTP 服务和命令行共用的存储部分
type Store struct {
	Repo    *repository.ProgressRepository
	Backend repository.DocumentBackend
	DB      *gorm.DB
}

type services struct {
	progress       *service.ProgressService
	analytics      *service.AnalyticsService
	recommendation *service.RecommendationService
	trainingPlan   *service.TrainingPlanService
	export         *service.ExportService
}

type controllers struct {
	progress       *controller.ProgressController
	analytics      *controller.AnalyticsController
	recommendation *controller.RecommendationController
	skill          *controller.SkillController
	health         *controller.HealthController
}

// OpenStore 按配置创建文档后端和备份位置。
// 在 Repo.Init 或首次读取之前不会访问文档
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	s := &Store{}

	var backend repository.DocumentBackend
	switch cfg.Storage.Backend {
	case config.BackendMySQL:
		db, err := database.InitDB(&cfg.Database, cfg.Debug())
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		s.DB = db
		backend = repository.NewGormBackend(db, cfg.Storage.DocumentName)
	default:
		backend = repository.NewFileBackend(cfg.Storage.DocumentPath)
	}

	backup, err := newBackupSink(ctx, &cfg.Storage)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Backend = backend
	s.Repo = repository.NewProgressRepository(backend, backup)
	return s, nil
}

// InitStore 打开存储并确保存在有效的进度文档
func InitStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	s, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Init(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("init progress document: %w", err)
	}

	logger.Log.Info("Progress store ready",
		zap.String("backend", s.Backend.Describe()),
		zap.String("backup", cfg.Storage.BackupType))
	return s, nil
}

func newBackupSink(ctx context.Context, cfg *config.StorageConfig) (repository.BackupSink, error) {
	switch cfg.BackupType {
	case config.BackupLocal:
		return repository.NewLocalBackupSink(cfg.BackupDir), nil
	case config.BackupMinio:
		sink, err := repository.NewMinioBackupSink(ctx, cfg.MinioEndpoint, cfg.MinioAccessID, cfg.MinioSecret, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init minio backup sink: %w", err)
		}
		return sink, nil
	}
	return nil, nil
}

func (s *Store) Close() {
	if s.DB == nil {
		return
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *App) initCache(ctx context.Context) cache.Cache {
	if !a.Config.Redis.Enabled {
		return cache.Noop{}
	}

	rdb, err := database.InitRedis(ctx, &a.Config.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, analytics cache disabled", zap.Error(err))
		return cache.Noop{}
	}
	a.Redis = rdb
	return cache.NewRedisCache(rdb, redisKeyPrefix)
}

func (a *App) initServices(c cache.Cache) *services {
	repo := a.Store.Repo
	s := &services{}

	s.progress = service.NewProgressService(repo, a.Ledger)
	s.analytics = service.NewAnalyticsService(repo, c, a.Config.Redis.CacheTTL)
	s.recommendation = service.NewRecommendationService(repo, a.Catalog)
	s.trainingPlan = service.NewTrainingPlanService(repo, a.Catalog)
	s.export = service.NewExportService(s.analytics)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		progress:       controller.NewProgressController(s.progress, a.Catalog),
		analytics:      controller.NewAnalyticsController(s.analytics, s.export),
		recommendation: controller.NewRecommendationController(s.recommendation, s.trainingPlan),
		skill:          controller.NewSkillController(a.Catalog),
		health:         controller.NewHealthController(a.Store.Repo, a.Ledger),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks() error {
	if a.Config.Catalog.Watch {
		go func() {
			if err := a.Catalog.Watch(a.ctx); err != nil {
				logger.Log.Error("Skill catalog watcher stopped", zap.Error(err))
			}
		}()
	}

	a.scheduler = scheduler.New(a.services.progress, a.Store.Repo)
	a.scheduler.AttemptTTL = a.Config.Ledger.OpenAttemptTTL
	a.scheduler.SweepInterval = a.Config.Ledger.SweepInterval
	if a.Config.Storage.BackupType != config.BackupNone {
		a.scheduler.SnapshotInterval = a.Config.Storage.SnapshotInterval
	}
	return a.scheduler.Start()
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		Ledger: ledger.New(),
		ctx:    ctx,
		cancel: cancel,
	}

	store, err := InitStore(ctx, cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	app.Store = store

	app.Catalog = catalog.New(cfg.Catalog.Dir)
	if err := app.Catalog.Reload(); err != nil {
		logger.Log.Warn("Skill catalog not loaded", zap.String("dir", cfg.Catalog.Dir), zap.Error(err))
	}

	app.services = app.initServices(app.initCache(ctx))
	controllers := app.initControllers(app.services)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("skilltrack-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	if err := app.startBackgroundTasks(); err != nil {
		app.Close()
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	return app, nil
}

// Close 停止后台任务并释放连接
func (a *App) Close() {
	a.cancel()
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		a.Close()
		return fmt.Errorf("listen: %w", err)
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)

	if open := a.Ledger.Len(); open > 0 {
		logger.Log.Warn("Open attempts discarded on shutdown", zap.Int("count", open))
	}
	a.Close()

	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Log.Info("Server exiting")
	return nil
}
