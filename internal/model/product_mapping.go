package model

import (
	"time"
)

// MappingStatus 商品映射同步状态
const (
	MappingStatusSynced  = "synced"  // 已同步
	MappingStatusPending = "pending" // 待同步
	MappingStatusError   = "error"   // 同步失败
)

// ==================== ProductMapping 商品映射 ====================

// ProductMapping 内部商品与平台商品的映射
// 唯一键 (restaurant_id, platform, product_id)：
// 首次推送成功时创建，之后每次推送原地更新，从不静默删除
type ProductMapping struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	RestaurantID int64  `gorm:"not null;uniqueIndex:idx_restaurant_platform_product"`
	Platform     string `gorm:"size:32;not null;uniqueIndex:idx_restaurant_platform_product"`
	ProductID    int64  `gorm:"not null;uniqueIndex:idx_restaurant_platform_product"`

	// 平台侧商品
	ExternalProductID string `gorm:"size:64;index"`
	ExternalName      string `gorm:"size:255"`

	// 两个独立的同步开关
	PriceSyncEnabled        bool `gorm:"default:true"`
	AvailabilitySyncEnabled bool `gorm:"default:true"`

	// 同步状态
	SyncStatus   string     `gorm:"size:16;default:'pending';index"`
	SyncError    string     `gorm:"type:text"`
	LastSyncedAt *time.Time

	// 审计
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (*ProductMapping) TableName() string {
	return "product_mappings"
}

// ==================== CategoryMapping 分类映射 ====================

// CategoryMapping 内部分类与平台分类的映射
type CategoryMapping struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	RestaurantID int64  `gorm:"not null;uniqueIndex:idx_restaurant_platform_category"`
	Platform     string `gorm:"size:32;not null;uniqueIndex:idx_restaurant_platform_category"`
	CategoryID   int64  `gorm:"not null;uniqueIndex:idx_restaurant_platform_category"`

	ExternalCategoryID string `gorm:"size:64;index"`
	ExternalName       string `gorm:"size:255"`

	LastSyncedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (*CategoryMapping) TableName() string {
	return "category_mappings"
}
