package dto

import "time"

// ==================== 菜单同步 ====================

// TriggerMenuSyncRequest 手动触发菜单同步请求
type TriggerMenuSyncRequest struct {
	Full        bool    `json:"full"`
	CategoryIDs []int64 `json:"category_ids"`
}

// SyncResultVO 同步结果视图对象
type SyncResultVO struct {
	CategoriesSynced int      `json:"categories_synced"`
	CategoriesFailed int      `json:"categories_failed"`
	ProductsSynced   int      `json:"products_synced"`
	ProductsFailed   int      `json:"products_failed"`
	Errors           []string `json:"errors,omitempty"`
}

// ==================== 同步流水 ====================

// SyncLogVO 同步流水视图对象
type SyncLogVO struct {
	ID               int64      `json:"id"`
	RunID            string     `json:"run_id"`
	Platform         string     `json:"platform"`
	SyncType         string     `json:"sync_type"`
	CategoriesSynced int        `json:"categories_synced"`
	CategoriesFailed int        `json:"categories_failed"`
	ProductsSynced   int        `json:"products_synced"`
	ProductsFailed   int        `json:"products_failed"`
	Errors           []string   `json:"errors,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	DurationSeconds  float64    `json:"duration_seconds"`
}

// ==================== 集成 ====================

// IntegrationVO 集成配置视图对象（密钥不出接口）
type IntegrationVO struct {
	ID           int64      `json:"id"`
	RestaurantID int64      `json:"restaurant_id"`
	Platform     string     `json:"platform"`
	IsActive     bool       `json:"is_active"`
	SyncStatus   string     `json:"sync_status"`
	LastError    string     `json:"last_error,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TestConnectionResponse 连通性探测响应
type TestConnectionResponse struct {
	Platform string `json:"platform"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// ==================== 商品映射 ====================

// ProductMappingVO 商品映射视图对象
type ProductMappingVO struct {
	ID                int64      `json:"id"`
	ProductID         int64      `json:"product_id"`
	ExternalProductID string     `json:"external_product_id"`
	ExternalName      string     `json:"external_name"`
	SyncStatus        string     `json:"sync_status"`
	SyncError         string     `json:"sync_error,omitempty"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
}
