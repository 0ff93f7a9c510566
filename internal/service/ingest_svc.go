package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/platform"
	"yemek_sync_v1_202608/internal/repository"
)

// ==================== IngestService 外部订单入库 ====================

// IngestService 把平台侧订单（webhook 推送或定时拉取）落成本地外部订单
// 以 (platform, external_order_id) 幂等：重复投递覆盖快照，不产生新行
type IngestService struct {
	orderRepo repository.ExternalOrderRepository
}

// NewIngestService 创建入库服务
func NewIngestService(orderRepo repository.ExternalOrderRepository) *IngestService {
	return &IngestService{orderRepo: orderRepo}
}

// IngestRaw 解析原始报文后入库，webhook 控制器用这个入口
func (s *IngestService) IngestRaw(ctx context.Context, active *ActiveAdapter, raw []byte) (int64, error) {
	inbound, err := active.Adapter.ParseOrder(raw)
	if err != nil {
		return 0, fmt.Errorf("解析 %s 订单报文失败: %w", active.Config.Platform, err)
	}
	return s.Ingest(ctx, active.Config.RestaurantID, inbound)
}

// Ingest 归一化订单入库，返回本地外部订单 ID
func (s *IngestService) Ingest(ctx context.Context, restaurantID int64, inbound *platform.InboundOrder) (int64, error) {
	if inbound.ExternalOrderID == "" {
		return 0, fmt.Errorf("平台 %s 订单缺少外部订单号", inbound.Platform)
	}

	// 平台状态翻译失败不拒单：落 pending 并标人工复核
	internalStatus, mapped := platform.ToInternal(inbound.Platform, inbound.ExternalStatus)
	needsReview := false
	reviewReason := ""
	if !mapped {
		internalStatus = model.OrderStatusPending
		needsReview = true
		reviewReason = fmt.Sprintf("平台状态 %q 无映射", inbound.ExternalStatus)
	}

	existing, err := s.orderRepo.GetByPlatformOrderID(ctx, inbound.Platform, inbound.ExternalOrderID)
	if err != nil {
		return 0, fmt.Errorf("查询外部订单失败: %w", err)
	}

	now := time.Now()
	items := make([]model.ExternalOrderItem, 0, len(inbound.Items))
	for _, it := range inbound.Items {
		items = append(items, model.ExternalOrderItem{
			ExternalLineID:    it.ExternalLineID,
			ExternalProductID: it.ExternalProductID,
			ProductName:       it.ProductName,
			Quantity:          it.Quantity,
			UnitAmount:        it.UnitAmount,
			TotalAmount:       it.TotalAmount,
			Options:           datatypes.JSONMap(it.Options),
		})
	}

	if existing == nil {
		order := &model.ExternalOrder{
			Platform:         inbound.Platform,
			ExternalOrderID:  inbound.ExternalOrderID,
			RestaurantID:     restaurantID,
			OrderNumber:      uuid.NewString(),
			Status:           internalStatus,
			ExternalStatus:   inbound.ExternalStatus,
			NeedsReview:      needsReview,
			ReviewReason:     reviewReason,
			CustomerName:     inbound.CustomerName,
			CustomerPhone:    inbound.CustomerPhone,
			Address:          datatypes.JSONMap(inbound.Address),
			Note:             inbound.Note,
			SubtotalAmount:   inbound.SubtotalAmount,
			DeliveryAmount:   inbound.DeliveryAmount,
			CommissionAmount: inbound.CommissionAmount,
			GrandTotalAmount: inbound.GrandTotalAmount,
			RawPayload:       datatypes.JSON(inbound.Raw),
			PlacedAt:         inbound.PlacedAt,
			LastSyncedAt:     &now,
		}
		if inbound.Currency != "" {
			order.Currency = inbound.Currency
		}
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return 0, fmt.Errorf("外部订单入库失败: %w", err)
		}
		if err := s.orderRepo.ReplaceItems(ctx, order.ID, items); err != nil {
			return 0, fmt.Errorf("外部订单明细入库失败: %w", err)
		}
		log.Printf("[Ingest] 新订单 %s@%s -> 本地 %d 状态 %s",
			inbound.ExternalOrderID, inbound.Platform, order.ID, internalStatus)
		return order.ID, nil
	}

	// 重复投递：覆盖快照，内部状态只前进不回退
	existing.ExternalStatus = inbound.ExternalStatus
	existing.CustomerName = inbound.CustomerName
	existing.CustomerPhone = inbound.CustomerPhone
	existing.Address = datatypes.JSONMap(inbound.Address)
	existing.Note = inbound.Note
	existing.SubtotalAmount = inbound.SubtotalAmount
	existing.DeliveryAmount = inbound.DeliveryAmount
	existing.CommissionAmount = inbound.CommissionAmount
	existing.GrandTotalAmount = inbound.GrandTotalAmount
	existing.RawPayload = datatypes.JSON(inbound.Raw)
	existing.PlacedAt = inbound.PlacedAt
	existing.LastSyncedAt = &now

	if needsReview && !existing.NeedsReview {
		existing.NeedsReview = true
		existing.ReviewReason = reviewReason
	}

	if mapped && s.shouldAdvance(existing.Status, internalStatus) {
		existing.Status = internalStatus
	}

	if err := s.orderRepo.Update(ctx, existing); err != nil {
		return 0, fmt.Errorf("外部订单更新失败: %w", err)
	}
	if err := s.orderRepo.ReplaceItems(ctx, existing.ID, items); err != nil {
		return 0, fmt.Errorf("外部订单明细更新失败: %w", err)
	}

	log.Printf("[Ingest] 重复投递 %s@%s -> 本地 %d 状态 %s",
		inbound.ExternalOrderID, inbound.Platform, existing.ID, existing.Status)
	return existing.ID, nil
}

// shouldAdvance 平台带来的状态只允许沿流程前进或终态取消
func (s *IngestService) shouldAdvance(current, incoming string) bool {
	if current == incoming {
		return false
	}
	if model.IsTerminalStatus(current) {
		return false
	}
	if incoming == model.OrderStatusCanceled {
		return true
	}
	return model.StatusRank(incoming) > model.StatusRank(current)
}
