package repository

import (
	"context"
	"errors"

	"yemek_sync_v1_202608/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== ProductMappingRepository 商品映射仓库 ====================

// ProductMappingRepository 商品映射仓库接口
type ProductMappingRepository interface {
	// Upsert 按 (restaurant_id, platform, product_id) 幂等写入：
	// 重复执行原地更新，不产生重复行
	Upsert(ctx context.Context, mapping *model.ProductMapping) error
	GetByProduct(ctx context.Context, restaurantID int64, platform string, productID int64) (*model.ProductMapping, error)
	ListByRestaurantPlatform(ctx context.Context, restaurantID int64, platform string) ([]model.ProductMapping, error)
	Count(ctx context.Context, restaurantID int64, platform string) (int64, error)
}

type productMappingRepository struct {
	db *gorm.DB
}

// NewProductMappingRepository 创建商品映射仓库
func NewProductMappingRepository(db *gorm.DB) ProductMappingRepository {
	return &productMappingRepository{db: db}
}

func (r *productMappingRepository) Upsert(ctx context.Context, mapping *model.ProductMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "restaurant_id"}, {Name: "platform"}, {Name: "product_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_product_id", "external_name",
			"sync_status", "sync_error", "last_synced_at", "updated_at",
		}),
	}).Create(mapping).Error
}

func (r *productMappingRepository) GetByProduct(ctx context.Context, restaurantID int64, platform string, productID int64) (*model.ProductMapping, error) {
	var mapping model.ProductMapping
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND platform = ? AND product_id = ?", restaurantID, platform, productID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *productMappingRepository) ListByRestaurantPlatform(ctx context.Context, restaurantID int64, platform string) ([]model.ProductMapping, error) {
	var mappings []model.ProductMapping
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND platform = ?", restaurantID, platform).
		Order("product_id ASC").
		Find(&mappings).Error
	return mappings, err
}

func (r *productMappingRepository) Count(ctx context.Context, restaurantID int64, platform string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProductMapping{}).
		Where("restaurant_id = ? AND platform = ?", restaurantID, platform).
		Count(&count).Error
	return count, err
}

// ==================== CategoryMappingRepository 分类映射仓库 ====================

// CategoryMappingRepository 分类映射仓库接口
type CategoryMappingRepository interface {
	Upsert(ctx context.Context, mapping *model.CategoryMapping) error
	GetByCategory(ctx context.Context, restaurantID int64, platform string, categoryID int64) (*model.CategoryMapping, error)
	ListByRestaurantPlatform(ctx context.Context, restaurantID int64, platform string) ([]model.CategoryMapping, error)
}

type categoryMappingRepository struct {
	db *gorm.DB
}

// NewCategoryMappingRepository 创建分类映射仓库
func NewCategoryMappingRepository(db *gorm.DB) CategoryMappingRepository {
	return &categoryMappingRepository{db: db}
}

func (r *categoryMappingRepository) Upsert(ctx context.Context, mapping *model.CategoryMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "restaurant_id"}, {Name: "platform"}, {Name: "category_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_category_id", "external_name", "last_synced_at", "updated_at",
		}),
	}).Create(mapping).Error
}

func (r *categoryMappingRepository) GetByCategory(ctx context.Context, restaurantID int64, platform string, categoryID int64) (*model.CategoryMapping, error) {
	var mapping model.CategoryMapping
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND platform = ? AND category_id = ?", restaurantID, platform, categoryID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *categoryMappingRepository) ListByRestaurantPlatform(ctx context.Context, restaurantID int64, platform string) ([]model.CategoryMapping, error) {
	var mappings []model.CategoryMapping
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND platform = ?", restaurantID, platform).
		Find(&mappings).Error
	return mappings, err
}
