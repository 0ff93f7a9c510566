package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/platform"
	"yemek_sync_v1_202608/internal/repository"
)

// ==================== CatalogSyncService 菜单同步服务 ====================

// SyncOptions 同步选项
type SyncOptions struct {
	// Full 全量：已映射的分类/商品也重新推送
	Full bool
	// CategoryIDs 限定分类，空表示全部
	CategoryIDs []int64
	// Concurrency 商品推送 worker 数，<=0 用默认值
	Concurrency int
}

// SyncResult 同步结果
// 单项成败相互独立，失败逐条累积，不中断整轮
type SyncResult struct {
	CategoriesSynced int
	CategoriesFailed int
	ProductsSynced   int
	ProductsFailed   int
	Errors           []string
}

// CatalogSyncService 菜单同步服务
// 把内部菜单目录推送到指定平台，按自然键幂等落映射
type CatalogSyncService struct {
	registry     *RegistryService
	catalogRepo  repository.CatalogRepository
	productRepo  repository.ProductMappingRepository
	categoryRepo repository.CategoryMappingRepository
	logRepo      repository.SyncLogRepository
	integRepo    repository.IntegrationRepository

	defaultConcurrency int
}

// NewCatalogSyncService 创建菜单同步服务
func NewCatalogSyncService(
	registry *RegistryService,
	catalogRepo repository.CatalogRepository,
	productRepo repository.ProductMappingRepository,
	categoryRepo repository.CategoryMappingRepository,
	logRepo repository.SyncLogRepository,
	integRepo repository.IntegrationRepository,
) *CatalogSyncService {
	return &CatalogSyncService{
		registry:           registry,
		catalogRepo:        catalogRepo,
		productRepo:        productRepo,
		categoryRepo:       categoryRepo,
		logRepo:            logRepo,
		integRepo:          integRepo,
		defaultConcurrency: 3,
	}
}

// SyncMenu 把门店菜单同步到指定平台
// 流水记录在迭代前落行、结束后无论成败都补齐（defer 兜底）
func (s *CatalogSyncService) SyncMenu(ctx context.Context, restaurantID int64, platformID string, opts SyncOptions) (*SyncResult, error) {
	if _, err := s.catalogRepo.GetRestaurant(ctx, restaurantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("门店 %d 不存在", restaurantID)
		}
		return nil, err
	}

	active, err := s.registry.AdapterFor(ctx, restaurantID, platformID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("门店 %d 未激活平台 %s", restaurantID, platformID)
	}

	syncType := model.SyncTypeIncremental
	if opts.Full {
		syncType = model.SyncTypeFull
	}

	// 开始：集成置 syncing，流水落行
	if err := s.integRepo.MarkSyncing(ctx, active.Config.ID); err != nil {
		log.Printf("[CatalogSync] 集成状态回写失败: %v", err)
	}

	attemptLog := &model.SyncAttemptLog{
		RunID:        uuid.NewString(),
		RestaurantID: restaurantID,
		Platform:     platformID,
		SyncType:     syncType,
		StartedAt:    time.Now(),
	}
	if err := s.logRepo.Create(ctx, attemptLog); err != nil {
		return nil, fmt.Errorf("创建同步流水失败: %w", err)
	}

	result := &SyncResult{}

	// 结束：无论成功/部分失败/整体失败都补齐流水并回写集成状态
	defer func() {
		attemptLog.CategoriesSynced = result.CategoriesSynced
		attemptLog.CategoriesFailed = result.CategoriesFailed
		attemptLog.ProductsSynced = result.ProductsSynced
		attemptLog.ProductsFailed = result.ProductsFailed
		attemptLog.Errors = result.Errors
		if err := s.logRepo.Finalize(ctx, attemptLog); err != nil {
			log.Printf("[CatalogSync] 同步流水收尾失败: %v", err)
		}

		var resultErr error
		if len(result.Errors) > 0 {
			resultErr = fmt.Errorf("%d 项失败, 首个错误: %s",
				result.CategoriesFailed+result.ProductsFailed, result.Errors[0])
		}
		if err := s.integRepo.MarkSyncResult(ctx, active.Config.ID, resultErr); err != nil {
			log.Printf("[CatalogSync] 集成状态回写失败: %v", err)
		}
	}()

	// 1. 分类
	categoryExtIDs, err := s.syncCategories(ctx, active, opts, result)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}

	// 2. 商品（worker 池并行，单品失败不拦路）
	s.syncProducts(ctx, active, opts, categoryExtIDs, result)

	log.Printf("[CatalogSync] 门店 %d -> %s 完成: 分类 %d/%d 商品 %d/%d",
		restaurantID, platformID,
		result.CategoriesSynced, result.CategoriesSynced+result.CategoriesFailed,
		result.ProductsSynced, result.ProductsSynced+result.ProductsFailed)

	return result, nil
}

// syncCategories 推送分类，返回 内部分类ID -> 平台分类ID
func (s *CatalogSyncService) syncCategories(ctx context.Context, active *ActiveAdapter, opts SyncOptions, result *SyncResult) (map[int64]string, error) {
	restaurantID := active.Config.RestaurantID
	platformID := active.Config.Platform

	categories, err := s.catalogRepo.ListCategories(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("读取菜单分类失败: %w", err)
	}

	wanted := make(map[int64]bool, len(opts.CategoryIDs))
	for _, id := range opts.CategoryIDs {
		wanted[id] = true
	}

	extIDs := make(map[int64]string, len(categories))
	for i := range categories {
		cat := &categories[i]
		if len(wanted) > 0 && !wanted[cat.ID] {
			continue
		}

		existing, err := s.categoryRepo.GetByCategory(ctx, restaurantID, platformID, cat.ID)
		if err != nil {
			result.CategoriesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("分类 %d: %v", cat.ID, err))
			continue
		}

		// 增量模式下已映射的分类跳过推送
		if existing != nil && !opts.Full {
			extIDs[cat.ID] = existing.ExternalCategoryID
			continue
		}

		extID, err := active.Adapter.PushCategory(ctx, &platform.Category{
			ID:          cat.ID,
			Name:        cat.Name,
			Description: cat.Description,
			Rank:        cat.Rank,
		})
		if err != nil {
			result.CategoriesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("分类 %d (%s): %v", cat.ID, cat.Name, err))
			// 已有旧映射的继续用旧平台 ID，商品不至于全军覆没
			if existing != nil {
				extIDs[cat.ID] = existing.ExternalCategoryID
			}
			continue
		}

		now := time.Now()
		if err := s.categoryRepo.Upsert(ctx, &model.CategoryMapping{
			RestaurantID:       restaurantID,
			Platform:           platformID,
			CategoryID:         cat.ID,
			ExternalCategoryID: extID,
			ExternalName:       cat.Name,
			LastSyncedAt:       &now,
		}); err != nil {
			result.CategoriesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("分类 %d 落映射失败: %v", cat.ID, err))
			continue
		}

		extIDs[cat.ID] = extID
		result.CategoriesSynced++
	}

	return extIDs, nil
}

// syncProducts 推送商品，小 worker 池限并发防止打爆平台限流
func (s *CatalogSyncService) syncProducts(ctx context.Context, active *ActiveAdapter, opts SyncOptions, categoryExtIDs map[int64]string, result *SyncResult) {
	restaurantID := active.Config.RestaurantID
	platformID := active.Config.Platform

	products, err := s.catalogRepo.ListProducts(ctx, restaurantID, opts.CategoryIDs)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("读取菜单商品失败: %v", err))
		return
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = s.defaultConcurrency
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i := range products {
		prod := &products[i]

		existing, err := s.productRepo.GetByProduct(ctx, restaurantID, platformID, prod.ID)
		if err != nil {
			mu.Lock()
			result.ProductsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("商品 %d: %v", prod.ID, err))
			mu.Unlock()
			continue
		}
		// 增量模式下已同步成功的商品跳过
		if existing != nil && !opts.Full && existing.SyncStatus == model.MappingStatusSynced {
			continue
		}

		extCategoryID, ok := categoryExtIDs[prod.CategoryID]
		if !ok {
			mu.Lock()
			result.ProductsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("商品 %d (%s): 所属分类未映射", prod.ID, prod.Name))
			mu.Unlock()
			continue
		}

		// 映射上单独关了价格同步的商品，推送报文不带价格
		syncPrice := existing == nil || existing.PriceSyncEnabled

		wg.Add(1)
		sem <- struct{}{}
		go func(prod *model.MenuProduct, extCategoryID string, syncPrice bool) {
			defer wg.Done()
			defer func() { <-sem }()

			extID, pushErr := active.Adapter.PushProduct(ctx, &platform.Product{
				ID:                 prod.ID,
				ExternalCategoryID: extCategoryID,
				Name:               prod.Name,
				Description:        prod.Description,
				ImageURL:           prod.ImageURL,
				PriceAmount:        prod.PriceAmount,
				Currency:           prod.Currency,
				Available:          prod.IsAvailable,
				SyncPrice:          syncPrice,
			})

			now := time.Now()
			mapping := &model.ProductMapping{
				RestaurantID: restaurantID,
				Platform:     platformID,
				ProductID:    prod.ID,
				ExternalName: prod.Name,
				SyncStatus:   model.MappingStatusSynced,
				LastSyncedAt: &now,
			}

			if pushErr != nil {
				mu.Lock()
				result.ProductsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("商品 %d (%s): %v", prod.ID, prod.Name, pushErr))
				mu.Unlock()

				// 首次推送就失败时还没有映射行，不落库；
				// 已有映射的标记 error，保留旧的平台 ID
				if existing != nil {
					mapping.ExternalProductID = existing.ExternalProductID
					mapping.SyncStatus = model.MappingStatusError
					mapping.SyncError = pushErr.Error()
					mapping.LastSyncedAt = existing.LastSyncedAt
					if err := s.productRepo.Upsert(ctx, mapping); err != nil {
						log.Printf("[CatalogSync] 商品 %d 映射回写失败: %v", prod.ID, err)
					}
				}
				return
			}

			mapping.ExternalProductID = extID
			if err := s.productRepo.Upsert(ctx, mapping); err != nil {
				mu.Lock()
				result.ProductsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("商品 %d 落映射失败: %v", prod.ID, err))
				mu.Unlock()
				return
			}

			mu.Lock()
			result.ProductsSynced++
			mu.Unlock()
		}(prod, extCategoryID, syncPrice)
	}

	wg.Wait()
}
