package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"kfinder_dev_v1_202608/internal/config"
	"kfinder_dev_v1_202608/internal/controller"
	"kfinder_dev_v1_202608/internal/model"
	"kfinder_dev_v1_202608/internal/repository"
	"kfinder_dev_v1_202608/internal/router"
	"kfinder_dev_v1_202608/internal/service"
	"kfinder_dev_v1_202608/internal/task"
	"kfinder_dev_v1_202608/pkg/database"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	initLogger(cfg)

	// 2. 初始化数据库
	db := initDatabase(cfg)

	// 3. 初始化依赖
	deps := initDependencies(cfg, db)

	// 4. 启动定时任务
	initTasks(cfg, deps)

	// 5. 初始化路由
	gin.SetMode(ginMode(cfg))
	r := router.SetupRouter(deps.Controllers)

	// 6. 启动服务
	startServer(cfg, r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Record  repository.SavedRecordRepository
	Setting repository.SettingRepository
}

// Services 服务集合
type Services struct {
	Page     *service.PageService
	AI       *service.AIService
	Sourcing *service.SourcingService
	Export   *service.ExportService
}

// ==================== 初始化函数 ====================

func initLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Server.Mode == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	return database.InitDB(
		cfg.Database.DSN,
		cfg.Server.Mode == "debug",
		&model.SavedRecord{},
		&model.Setting{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Record:  repository.NewSavedRecordRepository(db),
		Setting: repository.NewSettingRepository(db),
	}

	// -------- 服务层 --------
	pageSvc := service.NewPageService(&service.PageConfig{
		Timeout:  cfg.Page.Timeout,
		ProxyURL: cfg.Page.ProxyURL,
		CacheTTL: cfg.Page.CacheTTL,
		Debug:    cfg.Page.Debug,
	})
	aiSvc := service.NewAIService(&service.AIConfig{
		APIKey:   cfg.Gemini.APIKey,
		Model:    cfg.Gemini.Model,
		Endpoint: cfg.Gemini.Endpoint,
		Timeout:  cfg.Gemini.Timeout,
	})
	services := &Services{
		Page:     pageSvc,
		AI:       aiSvc,
		Sourcing: service.NewSourcingService(pageSvc, repos.Record),
		Export:   service.NewExportService(repos.Record),
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Sourcing: controller.NewSourcingController(
			services.Sourcing, services.AI, services.Export,
			repos.Record, repos.Setting,
		),
		Setting: controller.NewSettingController(repos.Setting, services.AI),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(cfg *config.Config, deps *Dependencies) {
	cleanupTask := task.NewCleanupTask(deps.Repos.Record, cfg.Retention.Days)
	cleanupTask.Start()
}

// ==================== 服务启动 ====================

func ginMode(cfg *config.Config) string {
	if cfg.Server.Mode == "debug" {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}

// startServer 启动服务
func startServer(cfg *config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}
