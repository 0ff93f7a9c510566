package repository

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yemek_sync_v1_202608/internal/model"
)

func setupIntegrationRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	db.AutoMigrate(&model.IntegrationConfig{})
	return db
}

func TestIntegrationRepo_Lookups(t *testing.T) {
	db := setupIntegrationRepoTestDB(t)
	repo := NewIntegrationRepository(db)
	ctx := context.Background()

	configs := []*model.IntegrationConfig{
		{RestaurantID: 1, Platform: model.PlatformGetir, IsActive: true},
		{RestaurantID: 1, Platform: model.PlatformYemeksepeti, IsActive: false},
		{RestaurantID: 2, Platform: model.PlatformGetir, IsActive: true},
	}
	for _, cfg := range configs {
		if err := db.Create(cfg).Error; err != nil {
			t.Fatalf("创建集成配置失败: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, configs[0].ID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.Platform != model.PlatformGetir {
		t.Errorf("平台不符: %s", got.Platform)
	}

	// 未配置的组合返回 nil 而非错误
	got, err = repo.GetByRestaurantPlatform(ctx, 2, model.PlatformMigros)
	if err != nil {
		t.Fatalf("GetByRestaurantPlatform 失败: %v", err)
	}
	if got != nil {
		t.Error("未配置的集成应返回 nil")
	}

	active, err := repo.ListActiveByRestaurant(ctx, 1)
	if err != nil {
		t.Fatalf("ListActiveByRestaurant 失败: %v", err)
	}
	if len(active) != 1 || active[0].Platform != model.PlatformGetir {
		t.Errorf("门店 1 应只剩 getir 激活, got %d", len(active))
	}

	byPlatform, err := repo.ListActiveByPlatform(ctx, model.PlatformGetir)
	if err != nil {
		t.Fatalf("ListActiveByPlatform 失败: %v", err)
	}
	if len(byPlatform) != 2 {
		t.Errorf("getir 激活集成数应为 2, got %d", len(byPlatform))
	}
}

func TestIntegrationRepo_SyncStatusWriteback(t *testing.T) {
	db := setupIntegrationRepoTestDB(t)
	repo := NewIntegrationRepository(db)
	ctx := context.Background()

	cfg := &model.IntegrationConfig{RestaurantID: 1, Platform: model.PlatformTrendyol, IsActive: true}
	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("创建集成配置失败: %v", err)
	}

	if err := repo.MarkSyncing(ctx, cfg.ID); err != nil {
		t.Fatalf("MarkSyncing 失败: %v", err)
	}
	got, _ := repo.GetByID(ctx, cfg.ID)
	if got.SyncStatus != model.SyncStatusSyncing {
		t.Errorf("状态应为 syncing, got %s", got.SyncStatus)
	}

	// 失败回写错误文本
	if err := repo.MarkSyncResult(ctx, cfg.ID, errors.New("平台 503")); err != nil {
		t.Fatalf("MarkSyncResult 失败: %v", err)
	}
	got, _ = repo.GetByID(ctx, cfg.ID)
	if got.SyncStatus != model.SyncStatusError || got.LastError != "平台 503" {
		t.Errorf("失败回写不符: %s / %s", got.SyncStatus, got.LastError)
	}

	// 成功清空错误并刷新同步时间
	if err := repo.MarkSyncResult(ctx, cfg.ID, nil); err != nil {
		t.Fatalf("MarkSyncResult 失败: %v", err)
	}
	got, _ = repo.GetByID(ctx, cfg.ID)
	if got.SyncStatus != model.SyncStatusSuccess || got.LastError != "" {
		t.Errorf("成功回写不符: %s / %s", got.SyncStatus, got.LastError)
	}
	if got.LastSyncedAt == nil {
		t.Error("成功后应刷新 last_synced_at")
	}
}
