package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/platform"
	"yemek_sync_v1_202608/internal/repository"
	"yemek_sync_v1_202608/pkg/net"
)

// ==================== RegistryService 集成注册表 ====================

// AdapterFactory 按配置构造适配器
// 测试里可以注入假工厂替换真实平台实现
type AdapterFactory func(cfg *model.IntegrationConfig, d net.Dispatcher) platform.Adapter

// ActiveAdapter 已激活的适配器及其配置
type ActiveAdapter struct {
	Config  *model.IntegrationConfig
	Adapter platform.Adapter
}

// RegistryService 集成注册表
// 解析门店开启了哪些平台，注入凭证构造对应适配器；
// 适配器按配置行缓存复用，带进程内状态的适配器（getir 的 token）才缓得住
type RegistryService struct {
	integrationRepo repository.IntegrationRepository
	dispatcher      net.Dispatcher
	factories       map[string]AdapterFactory

	mu    sync.Mutex
	cache map[int64]*cachedAdapter
}

type cachedAdapter struct {
	updatedAt time.Time
	adapter   platform.Adapter
}

// NewRegistryService 创建集成注册表
func NewRegistryService(integrationRepo repository.IntegrationRepository, dispatcher net.Dispatcher) *RegistryService {
	return &RegistryService{
		integrationRepo: integrationRepo,
		dispatcher:      dispatcher,
		cache:           make(map[int64]*cachedAdapter),
		factories: map[string]AdapterFactory{
			model.PlatformGetir: func(cfg *model.IntegrationConfig, d net.Dispatcher) platform.Adapter {
				return platform.NewGetirAdapter(cfg, d)
			},
			model.PlatformYemeksepeti: func(cfg *model.IntegrationConfig, d net.Dispatcher) platform.Adapter {
				return platform.NewYemeksepetiAdapter(cfg, d)
			},
			model.PlatformTrendyol: func(cfg *model.IntegrationConfig, d net.Dispatcher) platform.Adapter {
				return platform.NewTrendyolAdapter(cfg, d)
			},
			model.PlatformMigros: func(cfg *model.IntegrationConfig, d net.Dispatcher) platform.Adapter {
				return platform.NewMigrosAdapter(cfg, d)
			},
		},
	}
}

// RegisterFactory 覆盖/注册平台工厂（测试用）
// 换工厂后旧缓存全部作废
func (s *RegistryService) RegisterFactory(platformID string, factory AdapterFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[platformID] = factory
	s.cache = make(map[int64]*cachedAdapter)
}

// adapterFromCache 取配置对应的适配器，配置行更新过（updated_at 变化）就重建
func (s *RegistryService) adapterFromCache(cfg *model.IntegrationConfig) (platform.Adapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.cache[cfg.ID]; ok && entry.updatedAt.Equal(cfg.UpdatedAt) {
		return entry.adapter, true
	}

	factory, ok := s.factories[cfg.Platform]
	if !ok {
		return nil, false
	}
	adapter := factory(cfg, s.dispatcher)
	s.cache[cfg.ID] = &cachedAdapter{updatedAt: cfg.UpdatedAt, adapter: adapter}
	return adapter, true
}

// ActiveAdaptersFor 门店所有激活的平台适配器
// 没有任何激活集成返回空表，调用方按 no-op 处理，不是错误
func (s *RegistryService) ActiveAdaptersFor(ctx context.Context, restaurantID int64) ([]ActiveAdapter, error) {
	configs, err := s.integrationRepo.ListActiveByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("查询集成配置失败: %w", err)
	}

	adapters := make([]ActiveAdapter, 0, len(configs))
	for i := range configs {
		cfg := &configs[i]
		adapter, ok := s.adapterFromCache(cfg)
		if !ok {
			// 库里出现未知平台只可能是配置脏数据，跳过不拦路
			continue
		}
		adapters = append(adapters, ActiveAdapter{Config: cfg, Adapter: adapter})
	}
	return adapters, nil
}

// AdapterFor 单个平台的适配器；未配置或未激活返回 nil
func (s *RegistryService) AdapterFor(ctx context.Context, restaurantID int64, platformID string) (*ActiveAdapter, error) {
	cfg, err := s.integrationRepo.GetByRestaurantPlatform(ctx, restaurantID, platformID)
	if err != nil {
		return nil, fmt.Errorf("查询集成配置失败: %w", err)
	}
	if cfg == nil || !cfg.IsActive {
		return nil, nil
	}
	adapter, ok := s.adapterFromCache(cfg)
	if !ok {
		return nil, fmt.Errorf("不支持的平台: %s", platformID)
	}
	return &ActiveAdapter{Config: cfg, Adapter: adapter}, nil
}
