package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"yemek_sync_v1_202608/internal/repository"
)

// ==================== Webhook 签名校验 ====================

// SignatureHeader 平台回调签名头
const SignatureHeader = "X-Webhook-Signature"

// ContextKeyIntegration 校验通过后集成配置注入 Context 的键
const ContextKeyIntegration = "integration_config"

// WebhookAuth 平台回调签名校验中间件
// 路由形如 /webhook/:platform/:restaurantId，按路径定位集成配置，
// 用配置里的 webhook 密钥对原始报文做 HMAC-SHA256 比对。
// 原始报文读出后回填 Request.Body，下游 handler 照常读取。
func WebhookAuth(integrationRepo repository.IntegrationRepository, platformID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		restaurantID, err := strconv.ParseInt(c.Param("restaurantId"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "门店 ID 无效",
			})
			c.Abort()
			return
		}

		cfg, err := integrationRepo.GetByRestaurantPlatform(c.Request.Context(), restaurantID, platformID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    500,
				"message": "查询集成配置失败",
			})
			c.Abort()
			return
		}
		if cfg == nil || !cfg.IsActive {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": "集成未配置或未激活",
			})
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "读取报文失败",
			})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		// 未配置密钥的集成跳过校验（平台侧未开启签名）
		if cfg.WebhookSecret != "" {
			signature := c.GetHeader(SignatureHeader)
			if !verifySignature(body, cfg.WebhookSecret, signature) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"code":    401,
					"message": "签名校验失败",
				})
				c.Abort()
				return
			}
		}

		c.Set(ContextKeyIntegration, cfg)
		c.Next()
	}
}

// verifySignature HMAC-SHA256 恒定时间比对
func verifySignature(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
