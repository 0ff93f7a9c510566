package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"yemek_sync_v1_202608/internal/controller"
	"yemek_sync_v1_202608/internal/middleware"
	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/repository"
	"yemek_sync_v1_202608/internal/router"
	"yemek_sync_v1_202608/internal/service"
	"yemek_sync_v1_202608/internal/task"
	"yemek_sync_v1_202608/pkg/config"
	"yemek_sync_v1_202608/pkg/database"
	pkgnet "yemek_sync_v1_202608/pkg/net"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置校验失败: %v", err)
	}

	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:       cfg.App.JWTSecret,
		AccessTokenTTL:  2 * time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          cfg.App.Name,
	})

	// 2. 初始化数据库
	db := initDatabase(cfg)

	// 3. 初始化依赖
	deps := initDependencies(db, cfg)

	// 4. 启动定时任务
	deps.TaskManager.Start()
	defer deps.TaskManager.Stop()

	// 5. 初始化路由并启动服务
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	router.InitRoutes(r, deps.Repos.Integration, deps.Controllers.Webhook, deps.Controllers.Sync, deps.Controllers.Order)

	startServer(r, cfg)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Dispatcher  pkgnet.Dispatcher
	Services    *Services
	Controllers *Controllers
	TaskManager *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	Integration     repository.IntegrationRepository
	ExternalOrder   repository.ExternalOrderRepository
	ProductMapping  repository.ProductMappingRepository
	CategoryMapping repository.CategoryMappingRepository
	SyncLog         repository.SyncLogRepository
	Catalog         repository.CatalogRepository
}

// Services 服务集合
type Services struct {
	Registry    *service.RegistryService
	CatalogSync *service.CatalogSyncService
	OrderSync   *service.OrderSyncService
	Ingest      *service.IngestService
}

// Controllers 控制器集合
type Controllers struct {
	Webhook *controller.WebhookController
	Sync    *controller.SyncController
	Order   *controller.OrderController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	return database.InitDB(cfg.Postgres.DSN,
		// 门店与集成
		&model.Restaurant{}, &model.IntegrationConfig{},
		// 菜单目录
		&model.MenuCategory{}, &model.MenuProduct{},
		// 映射
		&model.ProductMapping{}, &model.CategoryMapping{},
		// 外部订单
		&model.ExternalOrder{}, &model.ExternalOrderItem{},
		// 同步流水
		&model.SyncAttemptLog{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB, cfg *config.Config) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Integration:     repository.NewIntegrationRepository(db),
		ExternalOrder:   repository.NewExternalOrderRepository(db),
		ProductMapping:  repository.NewProductMappingRepository(db),
		CategoryMapping: repository.NewCategoryMappingRepository(db),
		SyncLog:         repository.NewSyncLogRepository(db),
		Catalog:         repository.NewCatalogRepository(db),
	}

	// -------- 基础设施 --------
	dispatcher := pkgnet.NewDispatcher(pkgnet.DefaultOptions())

	// -------- 业务服务 --------
	services := &Services{}
	services.Registry = service.NewRegistryService(repos.Integration, dispatcher)
	services.CatalogSync = service.NewCatalogSyncService(
		services.Registry,
		repos.Catalog,
		repos.ProductMapping,
		repos.CategoryMapping,
		repos.SyncLog,
		repos.Integration,
	)
	services.OrderSync = service.NewOrderSyncService(
		services.Registry,
		repos.ExternalOrder,
		repos.ProductMapping,
		repos.Integration,
		repos.SyncLog,
		cfg.Sync.GlobalPushLimit,
	)
	services.Ingest = service.NewIngestService(repos.ExternalOrder)

	// -------- 定时任务 --------
	taskManager := task.NewTaskManager(&task.TaskManagerDeps{
		IntegrationRepo: repos.Integration,
		Registry:        services.Registry,
		IngestService:   services.Ingest,
		CatalogService:  services.CatalogSync,
	}, &task.TaskManagerConfig{
		PullEnabled:     true,
		PullSpec:        cfg.Sync.PullSpec,
		PullConcurrency: 5,
		PullBatchSize:   100,

		MenuEnabled:     true,
		MenuSpec:        cfg.Sync.MenuSpec,
		MenuConcurrency: cfg.Sync.MenuConcurrency,
		MenuWorkers:     cfg.Sync.MenuConcurrency,
	})

	// -------- Controller 层 --------
	controllers := &Controllers{
		Webhook: controller.NewWebhookController(services.Registry, services.Ingest),
		Sync:    controller.NewSyncController(taskManager, services.CatalogSync, services.OrderSync, services.Registry, repos.Catalog),
		Order:   controller.NewOrderController(repos.ExternalOrder, repos.SyncLog, repos.ProductMapping, repos.Integration),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Dispatcher:  dispatcher,
		Services:    services,
		Controllers: controllers,
		TaskManager: taskManager,
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(r *gin.Engine, cfg *config.Config) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Printf("服务启动在 :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}
