package repository

import (
	"context"
	"errors"
	"time"

	"yemek_sync_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== IntegrationRepository 集成配置仓库 ====================

// IntegrationRepository 集成配置仓库接口
// 凭证字段由运营后台写入，核心只回写 sync_status / last_error / last_synced_at
type IntegrationRepository interface {
	GetByID(ctx context.Context, id int64) (*model.IntegrationConfig, error)
	GetByRestaurantPlatform(ctx context.Context, restaurantID int64, platform string) (*model.IntegrationConfig, error)
	// ListActiveByRestaurant 门店所有开启的集成；没有任何集成返回空表，不是错误
	ListActiveByRestaurant(ctx context.Context, restaurantID int64) ([]model.IntegrationConfig, error)
	// ListActiveByPlatform 某平台所有开启的集成（拉单任务遍历用）
	ListActiveByPlatform(ctx context.Context, platform string) ([]model.IntegrationConfig, error)
	// MarkSyncing 同步开始时置状态
	MarkSyncing(ctx context.Context, id int64) error
	// MarkSyncResult 同步结束回写：成功清空 last_error，失败写入错误文本
	MarkSyncResult(ctx context.Context, id int64, syncErr error) error
}

type integrationRepository struct {
	db *gorm.DB
}

// NewIntegrationRepository 创建集成配置仓库
func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) GetByID(ctx context.Context, id int64) (*model.IntegrationConfig, error) {
	var cfg model.IntegrationConfig
	err := r.db.WithContext(ctx).First(&cfg, id).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *integrationRepository) GetByRestaurantPlatform(ctx context.Context, restaurantID int64, platform string) (*model.IntegrationConfig, error) {
	var cfg model.IntegrationConfig
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND platform = ?", restaurantID, platform).
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *integrationRepository) ListActiveByRestaurant(ctx context.Context, restaurantID int64) ([]model.IntegrationConfig, error) {
	var configs []model.IntegrationConfig
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND is_active = ?", restaurantID, true).
		Find(&configs).Error
	return configs, err
}

func (r *integrationRepository) ListActiveByPlatform(ctx context.Context, platform string) ([]model.IntegrationConfig, error) {
	var configs []model.IntegrationConfig
	err := r.db.WithContext(ctx).
		Where("platform = ? AND is_active = ?", platform, true).
		Find(&configs).Error
	return configs, err
}

// 状态回写不动 updated_at：updated_at 只跟配置编辑走，
// 注册表按它判断凭证是否轮换、适配器缓存是否可继续用
func (r *integrationRepository) MarkSyncing(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.IntegrationConfig{}).
		Where("id = ?", id).
		UpdateColumn("sync_status", model.SyncStatusSyncing).Error
}

func (r *integrationRepository) MarkSyncResult(ctx context.Context, id int64, syncErr error) error {
	now := time.Now()
	fields := map[string]interface{}{
		"sync_status":    model.SyncStatusSuccess,
		"last_error":     "",
		"last_synced_at": &now,
	}
	if syncErr != nil {
		fields["sync_status"] = model.SyncStatusError
		fields["last_error"] = syncErr.Error()
	}
	return r.db.WithContext(ctx).Model(&model.IntegrationConfig{}).
		Where("id = ?", id).
		UpdateColumns(fields).Error
}
