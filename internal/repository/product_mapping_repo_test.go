package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yemek_sync_v1_202608/internal/model"
)

func setupMappingRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	db.AutoMigrate(&model.ProductMapping{}, &model.CategoryMapping{})
	return db
}

func TestProductMappingRepo_UpsertByNaturalKey(t *testing.T) {
	db := setupMappingRepoTestDB(t)
	repo := NewProductMappingRepository(db)
	ctx := context.Background()

	now := time.Now()
	first := &model.ProductMapping{
		RestaurantID: 1, Platform: model.PlatformYemeksepeti, ProductID: 10,
		ExternalProductID: "ext-1", ExternalName: "Adana",
		SyncStatus: model.MappingStatusSynced, LastSyncedAt: &now,
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("首次 upsert 失败: %v", err)
	}

	// 同一自然键再写：更新而非新增
	later := now.Add(time.Minute)
	second := &model.ProductMapping{
		RestaurantID: 1, Platform: model.PlatformYemeksepeti, ProductID: 10,
		ExternalProductID: "ext-2", ExternalName: "Adana Kebap",
		SyncStatus: model.MappingStatusSynced, LastSyncedAt: &later,
	}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("二次 upsert 失败: %v", err)
	}

	count, err := repo.Count(ctx, 1, model.PlatformYemeksepeti)
	if err != nil {
		t.Fatalf("计数失败: %v", err)
	}
	if count != 1 {
		t.Errorf("映射数 = %d, want 1", count)
	}

	got, err := repo.GetByProduct(ctx, 1, model.PlatformYemeksepeti, 10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got.ExternalProductID != "ext-2" {
		t.Errorf("external_product_id = %s, want ext-2", got.ExternalProductID)
	}
	if got.ExternalName != "Adana Kebap" {
		t.Errorf("external_name = %s, want Adana Kebap", got.ExternalName)
	}
}

func TestProductMappingRepo_GetByProductNotFound(t *testing.T) {
	db := setupMappingRepoTestDB(t)
	repo := NewProductMappingRepository(db)

	got, err := repo.GetByProduct(context.Background(), 1, model.PlatformGetir, 999)
	if err != nil {
		t.Fatalf("查询不存在映射不应报错: %v", err)
	}
	if got != nil {
		t.Error("不存在的映射应返回 nil")
	}
}

func TestCategoryMappingRepo_Upsert(t *testing.T) {
	db := setupMappingRepoTestDB(t)
	repo := NewCategoryMappingRepository(db)
	ctx := context.Background()

	m := &model.CategoryMapping{
		RestaurantID: 1, Platform: model.PlatformMigros, CategoryID: 3,
		ExternalCategoryID: "cat-1", ExternalName: "Kebaplar",
	}
	if err := repo.Upsert(ctx, m); err != nil {
		t.Fatalf("upsert 失败: %v", err)
	}

	m.ExternalCategoryID = "cat-2"
	m.ID = 0
	if err := repo.Upsert(ctx, m); err != nil {
		t.Fatalf("二次 upsert 失败: %v", err)
	}

	got, err := repo.GetByCategory(ctx, 1, model.PlatformMigros, 3)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got == nil || got.ExternalCategoryID != "cat-2" {
		t.Errorf("应更新到 cat-2")
	}
}
