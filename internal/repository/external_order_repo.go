package repository

import (
	"context"
	"errors"
	"time"

	"yemek_sync_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== 过滤条件 ====================

// ExternalOrderFilter 平台订单过滤条件
type ExternalOrderFilter struct {
	RestaurantID int64
	Platform     string
	Status       string
	NeedsReview  *bool
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}

// ==================== ExternalOrderRepository 平台订单仓库 ====================

// ExternalOrderRepository 平台订单仓库接口
type ExternalOrderRepository interface {
	Create(ctx context.Context, order *model.ExternalOrder) error
	Update(ctx context.Context, order *model.ExternalOrder) error
	GetByID(ctx context.Context, id int64) (*model.ExternalOrder, error)
	// GetByPlatformOrderID 按自然键 (platform, external_order_id) 查找，不存在返回 nil
	GetByPlatformOrderID(ctx context.Context, platform, externalOrderID string) (*model.ExternalOrder, error)
	// ListByInternalOrderID 一个内部订单在各平台的记录
	ListByInternalOrderID(ctx context.Context, internalOrderID int64) ([]model.ExternalOrder, error)
	List(ctx context.Context, filter ExternalOrderFilter) ([]model.ExternalOrder, int64, error)
	// UpdateStatuses 平台确认后回写双状态
	UpdateStatuses(ctx context.Context, id int64, internalStatus, externalStatus string) error
	// ReplaceItems 整单行覆盖（幂等入单用）
	ReplaceItems(ctx context.Context, orderRef int64, items []model.ExternalOrderItem) error
	GetItems(ctx context.Context, orderRef int64) ([]model.ExternalOrderItem, error)
}

type externalOrderRepository struct {
	db *gorm.DB
}

// NewExternalOrderRepository 创建平台订单仓库
func NewExternalOrderRepository(db *gorm.DB) ExternalOrderRepository {
	return &externalOrderRepository{db: db}
}

func (r *externalOrderRepository) Create(ctx context.Context, order *model.ExternalOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *externalOrderRepository) Update(ctx context.Context, order *model.ExternalOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *externalOrderRepository) GetByID(ctx context.Context, id int64) (*model.ExternalOrder, error) {
	var order model.ExternalOrder
	err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *externalOrderRepository) GetByPlatformOrderID(ctx context.Context, platform, externalOrderID string) (*model.ExternalOrder, error) {
	var order model.ExternalOrder
	err := r.db.WithContext(ctx).
		Where("platform = ? AND external_order_id = ?", platform, externalOrderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *externalOrderRepository) ListByInternalOrderID(ctx context.Context, internalOrderID int64) ([]model.ExternalOrder, error) {
	var orders []model.ExternalOrder
	err := r.db.WithContext(ctx).
		Where("internal_order_id = ?", internalOrderID).
		Find(&orders).Error
	return orders, err
}

func (r *externalOrderRepository) List(ctx context.Context, filter ExternalOrderFilter) ([]model.ExternalOrder, int64, error) {
	var orders []model.ExternalOrder
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ExternalOrder{})

	if filter.RestaurantID > 0 {
		db = db.Where("restaurant_id = ?", filter.RestaurantID)
	}
	if filter.Platform != "" {
		db = db.Where("platform = ?", filter.Platform)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.NeedsReview != nil {
		db = db.Where("needs_review = ?", *filter.NeedsReview)
	}
	if filter.StartDate != nil {
		db = db.Where("created_at >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("created_at <= ?", filter.EndDate)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.
		Preload("Items").
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&orders).Error

	return orders, total, err
}

func (r *externalOrderRepository) UpdateStatuses(ctx context.Context, id int64, internalStatus, externalStatus string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.ExternalOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          internalStatus,
			"external_status": externalStatus,
			"last_synced_at":  &now,
		}).Error
}

func (r *externalOrderRepository) ReplaceItems(ctx context.Context, orderRef int64, items []model.ExternalOrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("external_order_ref = ?", orderRef).
			Delete(&model.ExternalOrderItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].ID = 0
			items[i].ExternalOrderRef = orderRef
		}
		return tx.Create(&items).Error
	})
}

func (r *externalOrderRepository) GetItems(ctx context.Context, orderRef int64) ([]model.ExternalOrderItem, error) {
	var items []model.ExternalOrderItem
	err := r.db.WithContext(ctx).
		Where("external_order_ref = ?", orderRef).
		Find(&items).Error
	return items, err
}
