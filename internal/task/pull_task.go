package task

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/platform"
	"yemek_sync_v1_202608/internal/repository"
	"yemek_sync_v1_202608/internal/service"
)

// ==================== OrderPullTask 拉取型平台主动拉单 ====================

// OrderPullTask 定时从拉取型平台（getir）拉取新订单并入库
// 推送型平台走 webhook，不在此任务范围内
type OrderPullTask struct {
	integrationRepo repository.IntegrationRepository
	registry        *service.RegistryService
	ingestService   *service.IngestService
	cron            *cron.Cron

	spec             string
	concurrencyLimit int
	batchLimit       int

	// lastPullAt 各集成上次拉取水位，进程内维护，重启后回退到 lookback 窗口
	mu         sync.Mutex
	lastPullAt map[int64]time.Time
	lookback   time.Duration
}

// NewOrderPullTask 创建拉单任务
func NewOrderPullTask(
	integrationRepo repository.IntegrationRepository,
	registry *service.RegistryService,
	ingestService *service.IngestService,
	spec string,
) *OrderPullTask {
	return &OrderPullTask{
		integrationRepo:  integrationRepo,
		registry:         registry,
		ingestService:    ingestService,
		cron:             cron.New(cron.WithSeconds()),
		spec:             spec,
		concurrencyLimit: 5,
		batchLimit:       100,
		lastPullAt:       make(map[int64]time.Time),
		lookback:         time.Hour,
	}
}

// SetConcurrency 设置并发参数
func (t *OrderPullTask) SetConcurrency(limit, batch int) {
	t.concurrencyLimit = limit
	t.batchLimit = batch
}

// Start 启动定时任务
func (t *OrderPullTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[OrderPullTask] 执行首次拉单...")
		t.pullAll(ctx)
	}()

	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.pullAll(ctx)
	})
	if err != nil {
		log.Printf("[OrderPullTask] 定时任务启动失败: %v", err)
		return
	}

	t.cron.Start()
	log.Printf("[OrderPullTask] 已启动 (%s)", t.spec)
}

// Stop 停止任务
func (t *OrderPullTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[OrderPullTask] 已停止")
}

// PullNow 手动触发一轮拉单
func (t *OrderPullTask) PullNow(ctx context.Context) {
	t.pullAll(ctx)
}

// pullAll 遍历所有激活的 getir 集成拉单
func (t *OrderPullTask) pullAll(ctx context.Context) {
	configs, err := t.integrationRepo.ListActiveByPlatform(ctx, model.PlatformGetir)
	if err != nil {
		log.Printf("[OrderPullTask] 获取激活集成失败: %v", err)
		return
	}
	if len(configs) == 0 {
		return
	}

	log.Printf("[OrderPullTask] 开始处理 %d 个集成", len(configs))

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	for i := range configs {
		cfg := configs[i]
		select {
		case <-ctx.Done():
			log.Println("[OrderPullTask] 任务超时停止")
			wg.Wait()
			return
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(cfg model.IntegrationConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			t.pullOne(ctx, &cfg)
		}(cfg)
	}

	wg.Wait()
}

// pullOne 拉取单个集成的新订单
func (t *OrderPullTask) pullOne(ctx context.Context, cfg *model.IntegrationConfig) {
	active, err := t.registry.AdapterFor(ctx, cfg.RestaurantID, cfg.Platform)
	if err != nil || active == nil {
		log.Printf("[OrderPullTask] 集成 %d 适配器不可用: %v", cfg.ID, err)
		return
	}

	since := t.sinceFor(cfg.ID)
	orders, err := active.Adapter.FetchOrders(ctx, since, t.batchLimit)
	if err != nil {
		if errors.Is(err, platform.ErrPullNotSupported) {
			return
		}
		log.Printf("[OrderPullTask] 集成 %d 拉单失败: %v", cfg.ID, err)
		return
	}

	ingested := 0
	for i := range orders {
		if _, err := t.ingestService.Ingest(ctx, cfg.RestaurantID, &orders[i]); err != nil {
			log.Printf("[OrderPullTask] 订单 %s 入库失败: %v", orders[i].ExternalOrderID, err)
			continue
		}
		ingested++
	}

	t.mu.Lock()
	t.lastPullAt[cfg.ID] = time.Now()
	t.mu.Unlock()

	if len(orders) > 0 {
		log.Printf("[OrderPullTask] 集成 %d 拉到 %d 单, 入库 %d", cfg.ID, len(orders), ingested)
	}
}

func (t *OrderPullTask) sinceFor(integrationID int64) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.lastPullAt[integrationID]; ok {
		return last
	}
	return time.Now().Add(-t.lookback)
}
