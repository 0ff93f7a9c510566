package controller

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yemek_sync_v1_202608/internal/middleware"
	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/repository"
	"yemek_sync_v1_202608/internal/service"
	pkgnet "yemek_sync_v1_202608/pkg/net"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试辅助 ====================

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	db.AutoMigrate(
		&model.IntegrationConfig{},
		&model.ExternalOrder{},
		&model.ExternalOrderItem{},
	)
	return db
}

func setupWebhookRouter(db *gorm.DB) *gin.Engine {
	integrationRepo := repository.NewIntegrationRepository(db)
	orderRepo := repository.NewExternalOrderRepository(db)

	registry := service.NewRegistryService(integrationRepo, pkgnet.NewDispatcher(pkgnet.DefaultOptions()))
	ingestSvc := service.NewIngestService(orderRepo)
	webhookCtl := NewWebhookController(registry, ingestSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/webhook/"+model.PlatformYemeksepeti+"/:restaurantId",
		middleware.WebhookAuth(integrationRepo, model.PlatformYemeksepeti),
		webhookCtl.Receive,
	)
	return r
}

func ysPayload() []byte {
	return []byte(`{
		"token": "ys-order-9001",
		"shortCode": "XK12",
		"status": "accepted",
		"customer": {"firstName": "Ayse", "lastName": "Demir", "mobilePhone": "+905551234567"},
		"price": {"subTotal": 120.0, "deliveryFees": 15.0, "grandTotal": 135.0, "currency": "TRY"},
		"products": [
			{"lineId": "l-1", "remoteCode": "p-77", "name": "Iskender", "quantity": 1, "unitPrice": 120.0, "totalPrice": 120.0}
		]
	}`)
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ==================== 单元测试 ====================

func TestWebhookReceive_CreatesOrder(t *testing.T) {
	db := setupWebhookTestDB(t)
	db.Create(&model.IntegrationConfig{
		RestaurantID: 1, Platform: model.PlatformYemeksepeti,
		IsActive: true, WebhookSecret: "whsec-1",
	})
	r := setupWebhookRouter(db)

	payload := ysPayload()
	req := httptest.NewRequest(http.MethodPost, "/webhook/yemeksepeti/1", bytes.NewReader(payload))
	req.Header.Set(middleware.SignatureHeader, signPayload(payload, "whsec-1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			OrderID int64 `json:"order_id"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.Code)
	assert.NotZero(t, resp.Data.OrderID)

	var order model.ExternalOrder
	assert.NoError(t, db.Preload("Items").First(&order, resp.Data.OrderID).Error)
	assert.Equal(t, "ys-order-9001", order.ExternalOrderID)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.Equal(t, int64(13500), order.GrandTotalAmount)
	assert.Len(t, order.Items, 1)
}

func TestWebhookReceive_IdempotentRedelivery(t *testing.T) {
	db := setupWebhookTestDB(t)
	db.Create(&model.IntegrationConfig{
		RestaurantID: 1, Platform: model.PlatformYemeksepeti,
		IsActive: true, WebhookSecret: "whsec-1",
	})
	r := setupWebhookRouter(db)

	payload := ysPayload()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook/yemeksepeti/1", bytes.NewReader(payload))
		req.Header.Set(middleware.SignatureHeader, signPayload(payload, "whsec-1"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	var count int64
	db.Model(&model.ExternalOrder{}).Count(&count)
	assert.Equal(t, int64(1), count, "重复投递不应产生新行")
}

func TestWebhookReceive_BadSignature(t *testing.T) {
	db := setupWebhookTestDB(t)
	db.Create(&model.IntegrationConfig{
		RestaurantID: 1, Platform: model.PlatformYemeksepeti,
		IsActive: true, WebhookSecret: "whsec-1",
	})
	r := setupWebhookRouter(db)

	payload := ysPayload()
	req := httptest.NewRequest(http.MethodPost, "/webhook/yemeksepeti/1", bytes.NewReader(payload))
	req.Header.Set(middleware.SignatureHeader, "deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var count int64
	db.Model(&model.ExternalOrder{}).Count(&count)
	assert.Zero(t, count)
}

func TestWebhookReceive_UnknownRestaurant(t *testing.T) {
	db := setupWebhookTestDB(t)
	r := setupWebhookRouter(db)

	req := httptest.NewRequest(http.MethodPost, "/webhook/yemeksepeti/42", bytes.NewReader(ysPayload()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
