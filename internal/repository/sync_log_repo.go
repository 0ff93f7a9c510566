package repository

import (
	"context"
	"time"

	"yemek_sync_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== SyncLogRepository 同步流水仓库 ====================

// SyncLogRepository 同步流水仓库接口（只追加）
type SyncLogRepository interface {
	Create(ctx context.Context, log *model.SyncAttemptLog) error
	// Finalize 补齐计数、错误清单和结束时间
	Finalize(ctx context.Context, log *model.SyncAttemptLog) error
	ListByRestaurant(ctx context.Context, restaurantID int64, limit int) ([]model.SyncAttemptLog, error)
}

type syncLogRepository struct {
	db *gorm.DB
}

// NewSyncLogRepository 创建同步流水仓库
func NewSyncLogRepository(db *gorm.DB) SyncLogRepository {
	return &syncLogRepository{db: db}
}

func (r *syncLogRepository) Create(ctx context.Context, log *model.SyncAttemptLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *syncLogRepository) Finalize(ctx context.Context, log *model.SyncAttemptLog) error {
	now := time.Now()
	log.FinishedAt = &now
	return r.db.WithContext(ctx).Model(&model.SyncAttemptLog{}).
		Where("id = ?", log.ID).
		Updates(map[string]interface{}{
			"categories_synced": log.CategoriesSynced,
			"categories_failed": log.CategoriesFailed,
			"products_synced":   log.ProductsSynced,
			"products_failed":   log.ProductsFailed,
			"errors":            log.Errors,
			"finished_at":       log.FinishedAt,
		}).Error
}

func (r *syncLogRepository) ListByRestaurant(ctx context.Context, restaurantID int64, limit int) ([]model.SyncAttemptLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []model.SyncAttemptLog
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("started_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
