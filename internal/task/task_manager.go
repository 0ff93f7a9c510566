package task

import (
	"context"
	"errors"
	"log"

	"yemek_sync_v1_202608/internal/repository"
	"yemek_sync_v1_202608/internal/service"
)

// ==================== TaskManager 定时任务管理器 ====================

// ErrTaskDisabled 任务未启用
var ErrTaskDisabled = errors.New("任务未启用")

// TaskManager 统一管理定时任务
// 管理范围：拉取型平台拉单、菜单定时同步
type TaskManager struct {
	pullTask *OrderPullTask
	menuTask *MenuSyncTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	IntegrationRepo repository.IntegrationRepository
	Registry        *service.RegistryService
	IngestService   *service.IngestService
	CatalogService  *service.CatalogSyncService
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// 拉单
	PullEnabled     bool
	PullSpec        string
	PullConcurrency int
	PullBatchSize   int

	// 菜单同步
	MenuEnabled     bool
	MenuSpec        string
	MenuConcurrency int
	MenuWorkers     int
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		PullEnabled:     true,
		PullSpec:        "0 */2 * * * *",
		PullConcurrency: 5,
		PullBatchSize:   100,

		MenuEnabled:     true,
		MenuSpec:        "0 0 4 * * *",
		MenuConcurrency: 3,
		MenuWorkers:     3,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if cfg.PullEnabled && deps.IngestService != nil {
		tm.pullTask = NewOrderPullTask(deps.IntegrationRepo, deps.Registry, deps.IngestService, cfg.PullSpec)
		tm.pullTask.SetConcurrency(cfg.PullConcurrency, cfg.PullBatchSize)
	}

	if cfg.MenuEnabled && deps.CatalogService != nil {
		tm.menuTask = NewMenuSyncTask(deps.IntegrationRepo, deps.CatalogService, cfg.MenuSpec)
		tm.menuTask.SetConcurrency(cfg.MenuConcurrency, cfg.MenuWorkers)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动定时任务...")

	if tm.pullTask != nil {
		tm.pullTask.Start()
	}
	if tm.menuTask != nil {
		tm.menuTask.Start()
	}

	log.Println("[TaskManager] 定时任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止定时任务...")

	if tm.pullTask != nil {
		tm.pullTask.Stop()
	}
	if tm.menuTask != nil {
		tm.menuTask.Stop()
	}

	log.Println("[TaskManager] 定时任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerPull 触发一轮拉单
func (tm *TaskManager) TriggerPull(ctx context.Context) error {
	if tm.pullTask == nil {
		return ErrTaskDisabled
	}
	tm.pullTask.PullNow(ctx)
	return nil
}

// TriggerMenuSync 触发全部集成的菜单同步
func (tm *TaskManager) TriggerMenuSync(ctx context.Context, full bool) error {
	if tm.menuTask == nil {
		return ErrTaskDisabled
	}
	tm.menuTask.SyncAllNow(ctx, full)
	return nil
}
