package model

import (
	"time"
)

// ==================== 平台常量 ====================

// Platform 平台标识
const (
	PlatformGetir       = "getir"
	PlatformYemeksepeti = "yemeksepeti"
	PlatformTrendyol    = "trendyol-yemek"
	PlatformMigros      = "migros-yemek"
)

// AllPlatforms 支持的平台列表
func AllPlatforms() []string {
	return []string{PlatformGetir, PlatformYemeksepeti, PlatformTrendyol, PlatformMigros}
}

// SyncStatus 集成同步状态
const (
	SyncStatusIdle    = "idle"    // 空闲
	SyncStatusSyncing = "syncing" // 同步中
	SyncStatusSuccess = "success" // 最近一次成功
	SyncStatusError   = "error"   // 最近一次失败
)

// ==================== Restaurant 门店 ====================

// Restaurant 门店
// 订单工作流和菜单编辑由外围系统负责，本核心只读门店标识和菜单数据
type Restaurant struct {
	BaseModel
	Name     string `gorm:"size:255;not null"`
	Phone    string `gorm:"size:32"`
	Address  string `gorm:"size:500"`
	Currency string `gorm:"size:10;default:TRY"`
	IsActive bool   `gorm:"default:true;index"`

	// 关联
	Integrations []IntegrationConfig `gorm:"foreignKey:RestaurantID"`
}

func (Restaurant) TableName() string {
	return "restaurants"
}

// ==================== IntegrationConfig 平台集成配置 ====================

// IntegrationConfig 门店在某平台上的集成配置
// 凭证字段由运营后台维护，核心只读；
// 状态/错误/时间戳三个字段由核心在每次同步后回写
type IntegrationConfig struct {
	BaseModel
	RestaurantID int64  `gorm:"index;not null;uniqueIndex:idx_restaurant_platform"`
	Platform     string `gorm:"size:32;not null;uniqueIndex:idx_restaurant_platform"`
	IsActive     bool   `gorm:"default:false;index"`

	// 平台凭证（按平台取用，不用的留空）
	APIKey    string `gorm:"size:255"`
	APISecret string `gorm:"size:255"`
	// getir: 餐厅密钥换 token；migros: 报文加密密钥
	SharedSecret string `gorm:"size:255"`
	VendorID     string `gorm:"size:64"` // yemeksepeti 商户号
	SupplierID   string `gorm:"size:64"` // trendyol 供应商号
	StoreID      string `gorm:"size:64"` // migros 门店号
	ChainID      string `gorm:"size:64"`
	BranchID     string `gorm:"size:64"`

	// 回调配置
	WebhookURL    string `gorm:"size:500"`
	WebhookSecret string `gorm:"size:255"`

	// 核心回写字段
	SyncStatus   string     `gorm:"size:16;default:'idle'"`
	LastError    string     `gorm:"type:text"`
	LastSyncedAt *time.Time

	// 关联
	Restaurant *Restaurant `gorm:"foreignKey:RestaurantID"`
}

func (IntegrationConfig) TableName() string {
	return "integration_configs"
}
