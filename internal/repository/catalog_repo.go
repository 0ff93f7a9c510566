package repository

import (
	"context"

	"yemek_sync_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== CatalogRepository 菜单目录仓库 ====================

// CatalogRepository 菜单目录只读仓库
// 菜单编辑属于外围系统，核心只读这两张表
type CatalogRepository interface {
	// ListCategories 门店启用中的分类（按 rank 排序）
	ListCategories(ctx context.Context, restaurantID int64) ([]model.MenuCategory, error)
	// ListProducts 门店启用中的商品，categoryIDs 为空表示全部
	ListProducts(ctx context.Context, restaurantID int64, categoryIDs []int64) ([]model.MenuProduct, error)
	GetProduct(ctx context.Context, productID int64) (*model.MenuProduct, error)
	GetRestaurant(ctx context.Context, restaurantID int64) (*model.Restaurant, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建菜单目录仓库
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListCategories(ctx context.Context, restaurantID int64) ([]model.MenuCategory, error) {
	var categories []model.MenuCategory
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND is_active = ?", restaurantID, true).
		Order("rank ASC").
		Find(&categories).Error
	return categories, err
}

func (r *catalogRepository) ListProducts(ctx context.Context, restaurantID int64, categoryIDs []int64) ([]model.MenuProduct, error) {
	db := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND is_active = ?", restaurantID, true)
	if len(categoryIDs) > 0 {
		db = db.Where("category_id IN ?", categoryIDs)
	}
	var products []model.MenuProduct
	err := db.Order("category_id ASC, id ASC").Find(&products).Error
	return products, err
}

func (r *catalogRepository) GetProduct(ctx context.Context, productID int64) (*model.MenuProduct, error) {
	var product model.MenuProduct
	err := r.db.WithContext(ctx).First(&product, productID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *catalogRepository) GetRestaurant(ctx context.Context, restaurantID int64) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	err := r.db.WithContext(ctx).First(&restaurant, restaurantID).Error
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}
