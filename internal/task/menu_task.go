package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/repository"
	"yemek_sync_v1_202608/internal/service"
)

// ==================== MenuSyncTask 菜单定时同步 ====================

// MenuSyncTask 定时把菜单增量推送到各平台
// 日常跑增量（只补没同步成功的），手动触发可选全量
type MenuSyncTask struct {
	integrationRepo repository.IntegrationRepository
	catalogService  *service.CatalogSyncService
	cron            *cron.Cron

	spec             string
	concurrencyLimit int
	productWorkers   int
}

// NewMenuSyncTask 创建菜单同步任务
func NewMenuSyncTask(
	integrationRepo repository.IntegrationRepository,
	catalogService *service.CatalogSyncService,
	spec string,
) *MenuSyncTask {
	return &MenuSyncTask{
		integrationRepo:  integrationRepo,
		catalogService:   catalogService,
		cron:             cron.New(cron.WithSeconds()),
		spec:             spec,
		concurrencyLimit: 3,
		productWorkers:   3,
	}
}

// SetConcurrency 设置并发参数
func (t *MenuSyncTask) SetConcurrency(limit, workers int) {
	t.concurrencyLimit = limit
	t.productWorkers = workers
}

// Start 启动定时任务
func (t *MenuSyncTask) Start() {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		t.syncAll(ctx, false)
	})
	if err != nil {
		log.Printf("[MenuSyncTask] 定时任务启动失败: %v", err)
		return
	}

	t.cron.Start()
	log.Printf("[MenuSyncTask] 已启动 (%s)", t.spec)
}

// Stop 停止任务
func (t *MenuSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[MenuSyncTask] 已停止")
}

// SyncAllNow 手动触发全部集成的菜单同步
func (t *MenuSyncTask) SyncAllNow(ctx context.Context, full bool) {
	t.syncAll(ctx, full)
}

// syncAll 遍历所有平台的激活集成，逐个跑菜单同步
func (t *MenuSyncTask) syncAll(ctx context.Context, full bool) {
	log.Println("[MenuSyncTask] 开始菜单同步...")

	var targets []model.IntegrationConfig
	for _, platformID := range model.AllPlatforms() {
		configs, err := t.integrationRepo.ListActiveByPlatform(ctx, platformID)
		if err != nil {
			log.Printf("[MenuSyncTask] 获取 %s 激活集成失败: %v", platformID, err)
			continue
		}
		targets = append(targets, configs...)
	}

	if len(targets) == 0 {
		log.Println("[MenuSyncTask] 无激活集成需要同步")
		return
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	var (
		mu          sync.Mutex
		totalSynced int
		totalFailed int
	)

	log.Printf("[MenuSyncTask] 开始处理 %d 个集成", len(targets))

	for i := range targets {
		cfg := targets[i]
		select {
		case <-ctx.Done():
			log.Println("[MenuSyncTask] 任务超时停止")
			wg.Wait()
			return
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(cfg model.IntegrationConfig) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := t.catalogService.SyncMenu(ctx, cfg.RestaurantID, cfg.Platform, service.SyncOptions{
				Full:        full,
				Concurrency: t.productWorkers,
			})
			if err != nil {
				log.Printf("[MenuSyncTask] 集成 %d 同步失败: %v", cfg.ID, err)
				return
			}

			mu.Lock()
			totalSynced += result.ProductsSynced
			totalFailed += result.ProductsFailed
			mu.Unlock()
		}(cfg)
	}

	wg.Wait()
	log.Printf("[MenuSyncTask] 菜单同步完成: 商品 %d 成功 %d 失败", totalSynced, totalFailed)
}
