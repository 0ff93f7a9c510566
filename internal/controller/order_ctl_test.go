package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/internal/repository"
)

// ==================== 测试辅助 ====================

func setupOrderCtlTestDB(t *testing.T) *gorm.DB {
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
		&model.ProductMapping{},
		&model.SyncAttemptLog{},
	)
	return db
}

func setupOrderCtlRouter(db *gorm.DB) *gin.Engine {
	ctl := NewOrderController(
		repository.NewExternalOrderRepository(db),
		repository.NewSyncLogRepository(db),
		repository.NewProductMappingRepository(db),
		repository.NewIntegrationRepository(db),
	)

	r := gin.New()
	r.Use(gin.Recovery())
	api := r.Group("/api/v1")
	{
		api.GET("/orders", ctl.List)
		api.GET("/orders/review", ctl.ReviewQueue)
		api.GET("/orders/:id", ctl.Detail)
		api.POST("/orders/:id/resolve", ctl.ResolveReview)
	}
	return r
}

func seedOrders(t *testing.T, db *gorm.DB) {
	orders := []model.ExternalOrder{
		{
			RestaurantID: 1, Platform: model.PlatformGetir,
			ExternalOrderID: "g-1", OrderNumber: "n-1",
			Status: model.OrderStatusConfirmed, ExternalStatus: "325",
			CustomerName: "Mehmet", GrandTotalAmount: 10000, Currency: "TRY",
		},
		{
			RestaurantID: 1, Platform: model.PlatformMigros,
			ExternalOrderID: "m-1", OrderNumber: "n-2",
			Status: model.OrderStatusPending, ExternalStatus: "NEW_PENDING",
			NeedsReview: true, ReviewReason: `平台状态 "NEW_PENDING" 无映射`,
		},
	}
	for i := range orders {
		if err := db.Create(&orders[i]).Error; err != nil {
			t.Fatalf("创建测试订单失败: %v", err)
		}
	}
}

// ==================== 单元测试 ====================

func TestOrderList(t *testing.T) {
	db := setupOrderCtlTestDB(t)
	seedOrders(t, db)
	r := setupOrderCtlRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?restaurant_id=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Total int64 `json:"total"`
			List  []struct {
				ExternalOrderID string  `json:"external_order_id"`
				GrandTotal      float64 `json:"grand_total"`
			} `json:"list"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Data.Total)
}

func TestOrderList_PlatformFilter(t *testing.T) {
	db := setupOrderCtlTestDB(t)
	seedOrders(t, db)
	r := setupOrderCtlRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?restaurant_id=1&platform=getir", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.Total)
}

func TestOrderList_MissingRestaurantID(t *testing.T) {
	db := setupOrderCtlTestDB(t)
	r := setupOrderCtlRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewQueueAndResolve(t *testing.T) {
	db := setupOrderCtlTestDB(t)
	seedOrders(t, db)
	r := setupOrderCtlRouter(db)

	// 复核队列只出待复核的
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/review?restaurant_id=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var queueResp struct {
		Data struct {
			Total int64 `json:"total"`
			List  []struct {
				ID              int64  `json:"id"`
				ExternalOrderID string `json:"external_order_id"`
			} `json:"list"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &queueResp))
	assert.Equal(t, int64(1), queueResp.Data.Total)
	assert.Equal(t, "m-1", queueResp.Data.List[0].ExternalOrderID)

	// 人工复核处理
	body, _ := json.Marshal(map[string]string{"status": model.OrderStatusConfirmed})
	resolveReq := httptest.NewRequest(http.MethodPost,
		"/api/v1/orders/"+itoa(queueResp.Data.List[0].ID)+"/resolve", bytes.NewReader(body))
	resolveReq.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, resolveReq)

	assert.Equal(t, http.StatusOK, w.Code)

	var order model.ExternalOrder
	db.First(&order, queueResp.Data.List[0].ID)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.False(t, order.NeedsReview)
	assert.Empty(t, order.ReviewReason)
}

func TestResolveReview_InvalidStatus(t *testing.T) {
	db := setupOrderCtlTestDB(t)
	seedOrders(t, db)
	r := setupOrderCtlRouter(db)

	body, _ := json.Marshal(map[string]string{"status": "shipped"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/1/resolve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderDetail_NotFound(t *testing.T) {
	db := setupOrderCtlTestDB(t)
	r := setupOrderCtlRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/999", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
