package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"yemek_sync_v1_202608/internal/api/dto"
	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/repository"
	"yemek_sync_v1_202608/internal/service"
	"yemek_sync_v1_202608/internal/task"
)

// SyncController 同步控制器
// 手动触发菜单同步/拉单、连通性探测
type SyncController struct {
	taskManager      *task.TaskManager
	catalogService   *service.CatalogSyncService
	orderSyncService *service.OrderSyncService
	registry         *service.RegistryService
	catalogRepo      repository.CatalogRepository
}

// NewSyncController 创建同步控制器
func NewSyncController(
	taskManager *task.TaskManager,
	catalogService *service.CatalogSyncService,
	orderSyncService *service.OrderSyncService,
	registry *service.RegistryService,
	catalogRepo repository.CatalogRepository,
) *SyncController {
	return &SyncController{
		taskManager:      taskManager,
		catalogService:   catalogService,
		orderSyncService: orderSyncService,
		registry:         registry,
		catalogRepo:      catalogRepo,
	}
}

// ==================== Handler 实现 ====================

// SyncMenu 手动触发单个门店单个平台的菜单同步
// POST /api/v1/sync/menu/:restaurantId/:platform
func (c *SyncController) SyncMenu(ctx *gin.Context) {
	restaurantID := parseID(ctx, "restaurantId")
	if restaurantID == 0 {
		return
	}
	platformID := ctx.Param("platform")

	var req dto.TriggerMenuSyncRequest
	// body 可为空，空体按增量处理
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.catalogService.SyncMenu(ctx.Request.Context(), restaurantID, platformID, service.SyncOptions{
		Full:        req.Full,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "菜单同步完成",
		"data": dto.SyncResultVO{
			CategoriesSynced: result.CategoriesSynced,
			CategoriesFailed: result.CategoriesFailed,
			ProductsSynced:   result.ProductsSynced,
			ProductsFailed:   result.ProductsFailed,
			Errors:           result.Errors,
		},
	})
}

// SyncAllMenus 手动触发所有集成的菜单同步
// POST /api/v1/sync/menu
func (c *SyncController) SyncAllMenus(ctx *gin.Context) {
	full := ctx.Query("full") == "true"

	// 异步执行，请求立即返回；任务用独立 context，不随请求取消
	go func() {
		_ = c.taskManager.TriggerMenuSync(context.Background(), full)
	}()

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "全量菜单同步任务已启动",
	})
}

// TriggerPull 手动触发一轮拉单
// POST /api/v1/sync/pull
func (c *SyncController) TriggerPull(ctx *gin.Context) {
	if err := c.taskManager.TriggerPull(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "拉单已触发",
	})
}

// PropagateStatus 内部订单状态变化向各平台扇出
// POST /api/v1/sync/orders/:internalOrderId/status
// 扇出内部消化所有平台错误，接口总是返回成功
func (c *SyncController) PropagateStatus(ctx *gin.Context) {
	internalOrderID := parseID(ctx, "internalOrderId")
	if internalOrderID == 0 {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if !model.IsValidOrderStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "状态不在统一字典内"})
		return
	}

	c.orderSyncService.PropagateStatusChange(ctx.Request.Context(), internalOrderID, req.Status)

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "状态扇出完成",
	})
}

// PropagateCancel 内部订单取消向各平台扇出
// POST /api/v1/sync/orders/:internalOrderId/cancel
func (c *SyncController) PropagateCancel(ctx *gin.Context) {
	internalOrderID := parseID(ctx, "internalOrderId")
	if internalOrderID == 0 {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = ctx.ShouldBindJSON(&req)

	c.orderSyncService.PropagateCancel(ctx.Request.Context(), internalOrderID, req.Reason)

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "取消扇出完成",
	})
}

// SetAvailability 商品上下架扇出
// POST /api/v1/sync/products/:restaurantId/:productId/availability
func (c *SyncController) SetAvailability(ctx *gin.Context) {
	restaurantID := parseID(ctx, "restaurantId")
	if restaurantID == 0 {
		return
	}
	productID := parseID(ctx, "productId")
	if productID == 0 {
		return
	}

	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	product, err := c.catalogRepo.GetProduct(ctx.Request.Context(), productID)
	if err != nil || product.RestaurantID != restaurantID {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "商品不存在"})
		return
	}

	c.orderSyncService.PropagateAvailability(ctx.Request.Context(), restaurantID, productID, *req.Available)

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "上下架扇出完成",
	})
}

// TestConnection 集成连通性探测
// POST /api/v1/sync/ping/:restaurantId/:platform
func (c *SyncController) TestConnection(ctx *gin.Context) {
	restaurantID := parseID(ctx, "restaurantId")
	if restaurantID == 0 {
		return
	}
	platformID := ctx.Param("platform")

	active, err := c.registry.AdapterFor(ctx.Request.Context(), restaurantID, platformID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	if active == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "集成未配置或未激活"})
		return
	}

	resp := dto.TestConnectionResponse{Platform: platformID, OK: true}
	if err := active.Adapter.TestConnection(ctx.Request.Context()); err != nil {
		resp.OK = false
		resp.Error = err.Error()
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "探测完成",
		"data":    resp,
	})
}
