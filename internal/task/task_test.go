package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/platform"
	"yemek_sync_v1_202608/internal/repository"
	"yemek_sync_v1_202608/internal/service"
	pkgnet "yemek_sync_v1_202608/pkg/net"
)

// ==================== 测试辅助 ====================

func setupTaskTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(
		&model.IntegrationConfig{},
		&model.ExternalOrder{},
		&model.ExternalOrderItem{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

// pullFakeAdapter 拉单假适配器，记录 since 入参
type pullFakeAdapter struct {
	mu     sync.Mutex
	sinces []time.Time
	orders []platform.InboundOrder
}

func (f *pullFakeAdapter) Platform() string { return model.PlatformGetir }

func (f *pullFakeAdapter) TestConnection(ctx context.Context) error { return nil }

func (f *pullFakeAdapter) PushOrderStatus(ctx context.Context, externalOrderID, internalStatus string, details *platform.StatusDetails) error {
	return nil
}

func (f *pullFakeAdapter) CancelOrder(ctx context.Context, externalOrderID, reason string) error {
	return nil
}

func (f *pullFakeAdapter) PushCategory(ctx context.Context, category *platform.Category) (string, error) {
	return "", nil
}

func (f *pullFakeAdapter) PushProduct(ctx context.Context, product *platform.Product) (string, error) {
	return "", nil
}

func (f *pullFakeAdapter) SetProductAvailability(ctx context.Context, externalProductID string, available bool) error {
	return nil
}

func (f *pullFakeAdapter) FetchOrders(ctx context.Context, since time.Time, limit int) ([]platform.InboundOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinces = append(f.sinces, since)
	return f.orders, nil
}

func (f *pullFakeAdapter) ParseOrder(payload []byte) (*platform.InboundOrder, error) {
	return nil, nil
}

// ==================== 单元测试 ====================

func TestOrderPullTask_PullNow(t *testing.T) {
	db := setupTaskTestDB(t)
	integrationRepo := repository.NewIntegrationRepository(db)
	orderRepo := repository.NewExternalOrderRepository(db)

	db.Create(&model.IntegrationConfig{
		RestaurantID: 1, Platform: model.PlatformGetir, IsActive: true,
	})

	fake := &pullFakeAdapter{
		orders: []platform.InboundOrder{
			{Platform: model.PlatformGetir, ExternalOrderID: "g-100", ExternalStatus: "200"},
			{Platform: model.PlatformGetir, ExternalOrderID: "g-101", ExternalStatus: "325"},
		},
	}

	registry := service.NewRegistryService(integrationRepo, pkgnet.NewDispatcher(pkgnet.DefaultOptions()))
	registry.RegisterFactory(model.PlatformGetir, func(cfg *model.IntegrationConfig, d pkgnet.Dispatcher) platform.Adapter {
		return fake
	})

	ingestSvc := service.NewIngestService(orderRepo)
	pullTask := NewOrderPullTask(integrationRepo, registry, ingestSvc, "0 */2 * * * *")

	pullTask.PullNow(context.Background())

	var count int64
	db.Model(&model.ExternalOrder{}).Count(&count)
	if count != 2 {
		t.Errorf("入库订单数 = %d, want 2", count)
	}

	// 再拉一轮：水位前移，重复单幂等
	pullTask.PullNow(context.Background())

	db.Model(&model.ExternalOrder{}).Count(&count)
	if count != 2 {
		t.Errorf("第二轮后订单数 = %d, want 2 (幂等)", count)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sinces) != 2 {
		t.Fatalf("拉取次数 = %d, want 2", len(fake.sinces))
	}
	if !fake.sinces[1].After(fake.sinces[0]) {
		t.Error("第二轮 since 水位应晚于第一轮")
	}
}

func TestOrderPullTask_NoActiveIntegrations(t *testing.T) {
	db := setupTaskTestDB(t)
	integrationRepo := repository.NewIntegrationRepository(db)

	db.Create(&model.IntegrationConfig{
		RestaurantID: 1, Platform: model.PlatformGetir, IsActive: false,
	})

	registry := service.NewRegistryService(integrationRepo, pkgnet.NewDispatcher(pkgnet.DefaultOptions()))
	ingestSvc := service.NewIngestService(repository.NewExternalOrderRepository(db))
	pullTask := NewOrderPullTask(integrationRepo, registry, ingestSvc, "0 */2 * * * *")

	// 无激活集成时直接返回，不 panic
	pullTask.PullNow(context.Background())
}

func TestTaskManager_DisabledTasks(t *testing.T) {
	tm := NewTaskManager(&TaskManagerDeps{}, &TaskManagerConfig{
		PullEnabled: false,
		MenuEnabled: false,
	})

	if err := tm.TriggerPull(context.Background()); err != ErrTaskDisabled {
		t.Errorf("TriggerPull err = %v, want ErrTaskDisabled", err)
	}
	if err := tm.TriggerMenuSync(context.Background(), false); err != ErrTaskDisabled {
		t.Errorf("TriggerMenuSync err = %v, want ErrTaskDisabled", err)
	}
}
