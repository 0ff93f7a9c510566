package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"yemek_sync_v1_202608/internal/api/dto"
	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/repository"
)

// OrderController 外部订单读接口
type OrderController struct {
	orderRepo   repository.ExternalOrderRepository
	logRepo     repository.SyncLogRepository
	mappingRepo repository.ProductMappingRepository
	integRepo   repository.IntegrationRepository
}

// NewOrderController 创建订单控制器
func NewOrderController(
	orderRepo repository.ExternalOrderRepository,
	logRepo repository.SyncLogRepository,
	mappingRepo repository.ProductMappingRepository,
	integRepo repository.IntegrationRepository,
) *OrderController {
	return &OrderController{
		orderRepo:   orderRepo,
		logRepo:     logRepo,
		mappingRepo: mappingRepo,
		integRepo:   integRepo,
	}
}

// ==================== 订单列表与详情 ====================

// List 外部订单列表
// GET /api/v1/orders
func (c *OrderController) List(ctx *gin.Context) {
	var req dto.ListOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	filter := repository.ExternalOrderFilter{
		RestaurantID: req.RestaurantID,
		Platform:     req.Platform,
		Status:       req.Status,
		Page:         req.Page,
		PageSize:     req.PageSize,
	}
	if req.StartDate != "" {
		if t, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			filter.StartDate = &t
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			filter.EndDate = &t
		}
	}

	orders, total, err := c.orderRepo.List(ctx.Request.Context(), filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	list := make([]dto.OrderListItem, len(orders))
	for i := range orders {
		list[i] = toOrderListItem(&orders[i])
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "ok",
		"data": dto.ListOrdersResponse{
			Total: total,
			List:  list,
		},
	})
}

// Detail 外部订单详情
// GET /api/v1/orders/:id
func (c *OrderController) Detail(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	order, err := c.orderRepo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	if order == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "订单不存在"})
		return
	}

	items := make([]dto.OrderItemVO, len(order.Items))
	for i := range order.Items {
		it := &order.Items[i]
		items[i] = dto.OrderItemVO{
			ID:                it.ID,
			ExternalLineID:    it.ExternalLineID,
			ExternalProductID: it.ExternalProductID,
			ProductID:         it.ProductID,
			ProductName:       it.ProductName,
			Quantity:          it.Quantity,
			UnitAmount:        it.GetUnitPrice(),
			TotalAmount:       float64(it.TotalAmount) / 100,
			Options:           it.Options,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "ok",
		"data": dto.OrderDetailResponse{
			Order: toOrderVO(order),
			Items: items,
		},
	})
}

// ==================== 人工复核队列 ====================

// ReviewQueue 待复核订单列表（入单时平台状态翻译失败的）
// GET /api/v1/orders/review
func (c *OrderController) ReviewQueue(ctx *gin.Context) {
	var req dto.ListOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	needsReview := true
	orders, total, err := c.orderRepo.List(ctx.Request.Context(), repository.ExternalOrderFilter{
		RestaurantID: req.RestaurantID,
		Platform:     req.Platform,
		NeedsReview:  &needsReview,
		Page:         req.Page,
		PageSize:     req.PageSize,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	list := make([]dto.OrderListItem, len(orders))
	for i := range orders {
		list[i] = toOrderListItem(&orders[i])
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "ok",
		"data": dto.ListOrdersResponse{
			Total: total,
			List:  list,
		},
	})
}

// ResolveReview 复核处理：人工指定正确状态并摘掉复核标记
// POST /api/v1/orders/:id/resolve
func (c *OrderController) ResolveReview(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	var req dto.ResolveReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if !model.IsValidOrderStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "状态不在统一字典内"})
		return
	}

	order, err := c.orderRepo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	if order == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "订单不存在"})
		return
	}

	order.Status = req.Status
	order.NeedsReview = false
	order.ReviewReason = ""
	if err := c.orderRepo.Update(ctx.Request.Context(), order); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "复核完成",
		"data":    gin.H{"id": order.ID, "status": order.Status},
	})
}

// ==================== 同步流水 / 映射 / 集成 ====================

// SyncLogs 门店同步流水
// GET /api/v1/restaurants/:restaurantId/sync-logs
func (c *OrderController) SyncLogs(ctx *gin.Context) {
	restaurantID := parseID(ctx, "restaurantId")
	if restaurantID == 0 {
		return
	}

	logs, err := c.logRepo.ListByRestaurant(ctx.Request.Context(), restaurantID, 50)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	list := make([]dto.SyncLogVO, len(logs))
	for i := range logs {
		l := &logs[i]
		list[i] = dto.SyncLogVO{
			ID:               l.ID,
			RunID:            l.RunID,
			Platform:         l.Platform,
			SyncType:         l.SyncType,
			CategoriesSynced: l.CategoriesSynced,
			CategoriesFailed: l.CategoriesFailed,
			ProductsSynced:   l.ProductsSynced,
			ProductsFailed:   l.ProductsFailed,
			Errors:           l.Errors,
			StartedAt:        l.StartedAt,
			FinishedAt:       l.FinishedAt,
			DurationSeconds:  l.Duration().Seconds(),
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "ok", "data": list})
}

// Mappings 门店某平台的商品映射列表
// GET /api/v1/restaurants/:restaurantId/mappings/:platform
func (c *OrderController) Mappings(ctx *gin.Context) {
	restaurantID := parseID(ctx, "restaurantId")
	if restaurantID == 0 {
		return
	}
	platformID := ctx.Param("platform")

	mappings, err := c.mappingRepo.ListByRestaurantPlatform(ctx.Request.Context(), restaurantID, platformID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	list := make([]dto.ProductMappingVO, len(mappings))
	for i := range mappings {
		m := &mappings[i]
		list[i] = dto.ProductMappingVO{
			ID:                m.ID,
			ProductID:         m.ProductID,
			ExternalProductID: m.ExternalProductID,
			ExternalName:      m.ExternalName,
			SyncStatus:        m.SyncStatus,
			SyncError:         m.SyncError,
			LastSyncedAt:      m.LastSyncedAt,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "ok", "data": list})
}

// Integrations 门店激活的集成列表（密钥不回传）
// GET /api/v1/restaurants/:restaurantId/integrations
func (c *OrderController) Integrations(ctx *gin.Context) {
	restaurantID := parseID(ctx, "restaurantId")
	if restaurantID == 0 {
		return
	}

	configs, err := c.integRepo.ListActiveByRestaurant(ctx.Request.Context(), restaurantID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	list := make([]dto.IntegrationVO, len(configs))
	for i := range configs {
		cfg := &configs[i]
		list[i] = dto.IntegrationVO{
			ID:           cfg.ID,
			RestaurantID: cfg.RestaurantID,
			Platform:     cfg.Platform,
			IsActive:     cfg.IsActive,
			SyncStatus:   cfg.SyncStatus,
			LastError:    cfg.LastError,
			LastSyncedAt: cfg.LastSyncedAt,
			CreatedAt:    cfg.CreatedAt,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "ok", "data": list})
}

// ==================== VO 转换 ====================

func toOrderListItem(o *model.ExternalOrder) dto.OrderListItem {
	return dto.OrderListItem{
		ID:              o.ID,
		Platform:        o.Platform,
		ExternalOrderID: o.ExternalOrderID,
		OrderNumber:     o.OrderNumber,
		RestaurantID:    o.RestaurantID,
		CustomerName:    o.CustomerName,
		Status:          o.Status,
		ExternalStatus:  o.ExternalStatus,
		NeedsReview:     o.NeedsReview,
		ItemCount:       len(o.Items),
		GrandTotal:      o.GetGrandTotal(),
		Currency:        o.Currency,
		PlacedAt:        o.PlacedAt,
		CreatedAt:       o.CreatedAt,
	}
}

func toOrderVO(o *model.ExternalOrder) *dto.OrderVO {
	return &dto.OrderVO{
		ID:              o.ID,
		Platform:        o.Platform,
		ExternalOrderID: o.ExternalOrderID,
		InternalOrderID: o.InternalOrderID,
		OrderNumber:     o.OrderNumber,
		RestaurantID:    o.RestaurantID,
		Status:          o.Status,
		ExternalStatus:  o.ExternalStatus,
		NeedsReview:     o.NeedsReview,
		ReviewReason:    o.ReviewReason,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		Address:         o.Address,
		Note:            o.Note,
		Subtotal:        o.GetSubtotal(),
		Delivery:        float64(o.DeliveryAmount) / 100,
		Commission:      float64(o.CommissionAmount) / 100,
		GrandTotal:      o.GetGrandTotal(),
		Currency:        o.Currency,
		PlacedAt:        o.PlacedAt,
		LastSyncedAt:    o.LastSyncedAt,
		CreatedAt:       o.CreatedAt,
	}
}
