package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"yemek_sync_v1_202608/internal/middleware"
	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/service"
	"yemek_sync_v1_202608/pkg/secure"
)

// WebhookController 平台订单回调控制器
// 推送型平台（yemeksepeti/trendyol/migros）通过各自的回调路由投递订单，
// 签名校验在 middleware.WebhookAuth 完成，这里只负责解析入库。
type WebhookController struct {
	registry      *service.RegistryService
	ingestService *service.IngestService
}

// NewWebhookController 创建回调控制器
func NewWebhookController(registry *service.RegistryService, ingestService *service.IngestService) *WebhookController {
	return &WebhookController{
		registry:      registry,
		ingestService: ingestService,
	}
}

// Receive 接收平台订单回调
// POST /webhook/:platform/:restaurantId
// 幂等：平台重复投递同一单返回同一个本地订单 ID
func (c *WebhookController) Receive(ctx *gin.Context) {
	cfgVal, exists := ctx.Get(middleware.ContextKeyIntegration)
	if !exists {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "集成配置未注入",
		})
		return
	}
	cfg := cfgVal.(*model.IntegrationConfig)

	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil || len(body) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "报文为空或读取失败",
		})
		return
	}

	active, err := c.registry.AdapterFor(ctx.Request.Context(), cfg.RestaurantID, cfg.Platform)
	if err != nil || active == nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "适配器构造失败",
		})
		return
	}

	orderID, err := c.ingestService.IngestRaw(ctx.Request.Context(), active, body)
	if err != nil {
		// 密文解不开属于请求侧问题（密钥不匹配/报文损坏），回 400 让平台重推
		var decodeErr *secure.DecodeError
		if errors.As(err, &decodeErr) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": err.Error(),
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "订单已接收",
		"data":    gin.H{"order_id": orderID},
	})
}
