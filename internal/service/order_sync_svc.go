package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/platform"
	"yemek_sync_v1_202608/internal/repository"
)

// ==================== OrderSyncService 订单状态外同步 ====================

// keyedMutex 按 key 串行化，同一外部订单的推送不允许交叉
// 引用计数归零即回收条目，key 空间随订单无限增长不能常驻内存
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockHandle
}

type lockHandle struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockHandle)}
}

// lock 返回解锁函数，必须成对调用
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	h, ok := k.locks[key]
	if !ok {
		h = &lockHandle{}
		k.locks[key] = h
	}
	h.refs++
	k.mu.Unlock()

	h.mu.Lock()
	return func() {
		h.mu.Unlock()
		k.mu.Lock()
		h.refs--
		if h.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// OrderSyncService 内部订单状态变化向各平台扇出
// 平台之间相互隔离：单平台失败落库落日志，不影响其他平台也不回传调用方
type OrderSyncService struct {
	registry    *RegistryService
	orderRepo   repository.ExternalOrderRepository
	mappingRepo repository.ProductMappingRepository
	integRepo   repository.IntegrationRepository
	logRepo     repository.SyncLogRepository

	orderLocks *keyedMutex
	// sem 全局推送并发上限，防止多门店同时变更打爆出口
	sem chan struct{}
}

// NewOrderSyncService 创建订单同步服务
func NewOrderSyncService(
	registry *RegistryService,
	orderRepo repository.ExternalOrderRepository,
	mappingRepo repository.ProductMappingRepository,
	integRepo repository.IntegrationRepository,
	logRepo repository.SyncLogRepository,
	globalLimit int,
) *OrderSyncService {
	if globalLimit <= 0 {
		globalLimit = 32
	}
	return &OrderSyncService{
		registry:    registry,
		orderRepo:   orderRepo,
		mappingRepo: mappingRepo,
		integRepo:   integRepo,
		logRepo:     logRepo,
		orderLocks:  newKeyedMutex(),
		sem:         make(chan struct{}, globalLimit),
	}
}

// recordPushOutcome 扇出结果落库：集成表回写结果，失败再补一条流水
// cfgID 为 0 表示没解析到集成配置，只落流水
func (s *OrderSyncService) recordPushOutcome(ctx context.Context, restaurantID int64, platformID string, cfgID int64, syncType string, pushErr error) {
	if cfgID != 0 {
		if err := s.integRepo.MarkSyncResult(ctx, cfgID, pushErr); err != nil {
			log.Printf("[OrderSync] 集成状态回写失败: %v", err)
		}
	}
	if pushErr == nil {
		return
	}

	now := time.Now()
	attempt := &model.SyncAttemptLog{
		RunID:        uuid.NewString(),
		RestaurantID: restaurantID,
		Platform:     platformID,
		SyncType:     syncType,
		Errors:       pq.StringArray{pushErr.Error()},
		StartedAt:    now,
		FinishedAt:   &now,
	}
	if err := s.logRepo.Create(ctx, attempt); err != nil {
		log.Printf("[OrderSync] 同步流水写入失败: %v", err)
	}
}

// PropagateStatusChange 把内部订单的新状态推给所有关联的外部订单
// 等全部平台结束后返回；结果逐平台落库，调用方总是成功
func (s *OrderSyncService) PropagateStatusChange(ctx context.Context, internalOrderID int64, newStatus string) {
	if !model.IsValidOrderStatus(newStatus) {
		log.Printf("[OrderSync] 非法状态 %q, 订单 %d 不做扇出", newStatus, internalOrderID)
		return
	}

	orders, err := s.orderRepo.ListByInternalOrderID(ctx, internalOrderID)
	if err != nil {
		log.Printf("[OrderSync] 读取订单 %d 关联外部订单失败: %v", internalOrderID, err)
		return
	}
	if len(orders) == 0 {
		return
	}

	var wg sync.WaitGroup
	for i := range orders {
		order := &orders[i]
		wg.Add(1)
		go func(order *model.ExternalOrder) {
			defer wg.Done()
			s.pushOne(ctx, order, newStatus, nil)
		}(order)
	}
	wg.Wait()
}

// PropagateCancel 取消扇出，走平台专用取消通道
func (s *OrderSyncService) PropagateCancel(ctx context.Context, internalOrderID int64, reason string) {
	orders, err := s.orderRepo.ListByInternalOrderID(ctx, internalOrderID)
	if err != nil {
		log.Printf("[OrderSync] 读取订单 %d 关联外部订单失败: %v", internalOrderID, err)
		return
	}

	var wg sync.WaitGroup
	for i := range orders {
		order := &orders[i]
		wg.Add(1)
		go func(order *model.ExternalOrder) {
			defer wg.Done()
			s.cancelOne(ctx, order, reason)
		}(order)
	}
	wg.Wait()
}

// pushOne 推送单个外部订单的状态，错误内部消化、结果落库
func (s *OrderSyncService) pushOne(ctx context.Context, order *model.ExternalOrder, newStatus string, details *platform.StatusDetails) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	unlock := s.orderLocks.lock(order.Platform + ":" + order.ExternalOrderID)
	defer unlock()

	// 该平台没映射此状态的，按约定静默跳过，不算错误
	extToken, ok := platform.ToExternal(order.Platform, newStatus)
	if !ok {
		log.Printf("[OrderSync] 平台 %s 无状态 %s 的映射, 外部订单 %s 跳过",
			order.Platform, newStatus, order.ExternalOrderID)
		return
	}

	// 幂等去重：平台侧已经是目标状态就不再推
	if order.ExternalStatus == extToken {
		return
	}

	active, err := s.registry.AdapterFor(ctx, order.RestaurantID, order.Platform)
	if err != nil {
		log.Printf("[OrderSync] 门店 %d 平台 %s 适配器不可用, 外部订单 %s 跳过: %v",
			order.RestaurantID, order.Platform, order.ExternalOrderID, err)
		s.recordPushOutcome(ctx, order.RestaurantID, order.Platform, 0, model.SyncTypeOrderStatus, err)
		return
	}
	if active == nil {
		return
	}

	if err := active.Adapter.PushOrderStatus(ctx, order.ExternalOrderID, newStatus, details); err != nil {
		var mapErr *platform.MappingError
		if errors.As(err, &mapErr) {
			// 状态表和适配器不一致才会走到这
			log.Printf("[OrderSync] 平台 %s 拒绝状态 %s: %v", order.Platform, newStatus, err)
		} else {
			// 推送失败不动本地状态，等下次变更或人工重推
			log.Printf("[OrderSync] 外部订单 %s@%s 状态推送失败: %v",
				order.ExternalOrderID, order.Platform, err)
		}
		s.recordPushOutcome(ctx, order.RestaurantID, order.Platform, active.Config.ID, model.SyncTypeOrderStatus, err)
		return
	}

	s.recordPushOutcome(ctx, order.RestaurantID, order.Platform, active.Config.ID, model.SyncTypeOrderStatus, nil)

	if err := s.orderRepo.UpdateStatuses(ctx, order.ID, newStatus, extToken); err != nil {
		log.Printf("[OrderSync] 外部订单 %s@%s 状态回写失败: %v",
			order.ExternalOrderID, order.Platform, err)
	}
}

// cancelOne 取消单个外部订单
func (s *OrderSyncService) cancelOne(ctx context.Context, order *model.ExternalOrder, reason string) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	unlock := s.orderLocks.lock(order.Platform + ":" + order.ExternalOrderID)
	defer unlock()

	if order.Status == model.OrderStatusCanceled {
		return
	}

	active, err := s.registry.AdapterFor(ctx, order.RestaurantID, order.Platform)
	if err != nil {
		log.Printf("[OrderSync] 门店 %d 平台 %s 适配器不可用, 取消跳过: %v",
			order.RestaurantID, order.Platform, err)
		s.recordPushOutcome(ctx, order.RestaurantID, order.Platform, 0, model.SyncTypeOrderStatus, err)
		return
	}
	if active == nil {
		return
	}

	if err := active.Adapter.CancelOrder(ctx, order.ExternalOrderID, reason); err != nil {
		log.Printf("[OrderSync] 外部订单 %s@%s 取消失败: %v",
			order.ExternalOrderID, order.Platform, err)
		s.recordPushOutcome(ctx, order.RestaurantID, order.Platform, active.Config.ID, model.SyncTypeOrderStatus, err)
		return
	}

	s.recordPushOutcome(ctx, order.RestaurantID, order.Platform, active.Config.ID, model.SyncTypeOrderStatus, nil)

	extToken, _ := platform.ToExternal(order.Platform, model.OrderStatusCanceled)
	if err := s.orderRepo.UpdateStatuses(ctx, order.ID, model.OrderStatusCanceled, extToken); err != nil {
		log.Printf("[OrderSync] 外部订单 %s@%s 取消回写失败: %v",
			order.ExternalOrderID, order.Platform, err)
	}
}

// PropagateAvailability 商品上下架扇出到所有已映射且开了库存同步的平台
func (s *OrderSyncService) PropagateAvailability(ctx context.Context, restaurantID, productID int64, available bool) {
	actives, err := s.registry.ActiveAdaptersFor(ctx, restaurantID)
	if err != nil {
		log.Printf("[OrderSync] 读取门店 %d 激活集成失败: %v", restaurantID, err)
		return
	}

	var wg sync.WaitGroup
	for i := range actives {
		active := &actives[i]
		wg.Add(1)
		go func(active *ActiveAdapter) {
			defer wg.Done()

			s.sem <- struct{}{}
			defer func() { <-s.sem }()

			mapping, err := s.mappingRepo.GetByProduct(ctx, restaurantID, active.Config.Platform, productID)
			if err != nil {
				log.Printf("[OrderSync] 读取商品 %d 映射失败: %v", productID, err)
				return
			}
			// 未映射或关了库存同步的平台跳过
			if mapping == nil || !mapping.AvailabilitySyncEnabled {
				return
			}

			if err := active.Adapter.SetProductAvailability(ctx, mapping.ExternalProductID, available); err != nil {
				log.Printf("[OrderSync] 商品 %d@%s 上下架推送失败: %v",
					productID, active.Config.Platform, err)
				s.recordPushOutcome(ctx, restaurantID, active.Config.Platform, active.Config.ID, model.SyncTypeAvail, err)
				return
			}

			s.recordPushOutcome(ctx, restaurantID, active.Config.Platform, active.Config.ID, model.SyncTypeAvail, nil)
		}(active)
	}
	wg.Wait()
}
