package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yemek_sync_v1_202608/internal/controller"
	"yemek_sync_v1_202608/internal/middleware"
	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/repository"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	integrationRepo repository.IntegrationRepository,
	webhookCtl *controller.WebhookController,
	syncCtl *controller.SyncController,
	orderCtl *controller.OrderController) {

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 1. 平台回调路由组（签名校验，不走 JWT）
	// 推送型平台各挂一条，getir 走定时拉取不注册回调
	webhook := r.Group("/webhook")
	{
		for _, platformID := range []string{
			model.PlatformYemeksepeti,
			model.PlatformTrendyol,
			model.PlatformMigros,
		} {
			webhook.POST("/"+platformID+"/:restaurantId",
				middleware.WebhookAuth(integrationRepo, platformID),
				webhookCtl.Receive,
			)
		}
	}

	// 2. 管理 API 路由组
	api := r.Group("/api/v1", middleware.JWTAuth())
	{
		// 订单读接口
		orders := api.Group("/orders")
		{
			// GET /api/v1/orders
			orders.GET("", orderCtl.List)
			// 复核队列放在 :id 前面，避免被参数路由吞掉
			orders.GET("/review", orderCtl.ReviewQueue)
			orders.GET("/:id", orderCtl.Detail)
			orders.POST("/:id/resolve", orderCtl.ResolveReview)
		}

		// 门店维度读接口
		restaurants := api.Group("/restaurants")
		{
			restaurants.GET("/:restaurantId/sync-logs", orderCtl.SyncLogs)
			restaurants.GET("/:restaurantId/mappings/:platform", orderCtl.Mappings)
			restaurants.GET("/:restaurantId/integrations", orderCtl.Integrations)
		}

		// 同步触发，仅运营角色可手动触发
		sync := api.Group("/sync", middleware.RequireRole("admin", "operator"))
		{
			// POST /api/v1/sync/menu/:restaurantId/:platform
			sync.POST("/menu/:restaurantId/:platform",
				middleware.SyncRateLimit(middleware.SyncTypeMenu, 0),
				syncCtl.SyncMenu,
			)
			sync.POST("/menu", syncCtl.SyncAllMenus)
			sync.POST("/pull",
				middleware.SyncRateLimit(middleware.SyncTypePull, 0),
				syncCtl.TriggerPull,
			)
			sync.POST("/ping/:restaurantId/:platform",
				middleware.SyncRateLimit(middleware.SyncTypePing, 0),
				syncCtl.TestConnection,
			)

			// 订单状态扇出
			sync.POST("/orders/:internalOrderId/status", syncCtl.PropagateStatus)
			sync.POST("/orders/:internalOrderId/cancel", syncCtl.PropagateCancel)
			sync.POST("/products/:restaurantId/:productId/availability", syncCtl.SetAvailability)
		}
	}
}
