package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthedRouter(roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth()}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"user_id": GetUserID(c)}})
	})
	r.GET("/protected", handlers...)
	return r
}

// ==================== JWT 认证 ====================

func TestJWTAuth_ValidToken(t *testing.T) {
	token, err := GenerateAccessToken(42, "ops", "operator")
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
}

func TestJWTAuth_MissingOrMalformedHeader(t *testing.T) {
	r := newAuthedRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_RefreshTokenRejectedOnAccessRoute(t *testing.T) {
	// refresh token 的 subject 不是 access，不能直接访问业务接口
	token, err := GenerateRefreshToken(42, "ops", "operator")
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := newAuthedRouter("admin")

	token, _ := GenerateAccessToken(1, "viewer", "viewer")
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	token, _ = GenerateAccessToken(1, "boss", "admin")
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ==================== 同步限流 ====================

func TestSyncRateLimiter_CooldownAndReset(t *testing.T) {
	limiter := &SyncRateLimiter{}
	key := "restaurant:7:menu_sync"

	first := limiter.Check(key, time.Minute)
	assert.True(t, first.Allowed)

	second := limiter.Check(key, time.Minute)
	assert.False(t, second.Allowed)
	assert.Greater(t, second.RetryAfter, time.Duration(0))

	limiter.Reset(key)
	third := limiter.Check(key, time.Minute)
	assert.True(t, third.Allowed)
}

func TestSyncRateLimit_Middleware(t *testing.T) {
	r := gin.New()
	r.POST("/sync/menu/:restaurantId", SyncRateLimit(SyncTypeMenu, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 200})
	})

	req := httptest.NewRequest(http.MethodPost, "/sync/menu/301", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 冷却期内重复触发
	req = httptest.NewRequest(http.MethodPost, "/sync/menu/301", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "retry_after")

	// 另一门店不受影响
	req = httptest.NewRequest(http.MethodPost, "/sync/menu/302", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
