package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 同步限流 ====================

// SyncType 同步类型
type SyncType string

const (
	SyncTypeMenu SyncType = "menu_sync"
	SyncTypePull SyncType = "order_pull"
	SyncTypePing SyncType = "test_connection"
)

// 各类型默认冷却间隔
var defaultIntervals = map[SyncType]time.Duration{
	SyncTypeMenu: 5 * time.Minute,
	SyncTypePull: time.Minute,
	SyncTypePing: 10 * time.Second,
}

// GetInterval 获取同步类型的默认冷却间隔
func GetInterval(syncType SyncType) time.Duration {
	if interval, ok := defaultIntervals[syncType]; ok {
		return interval
	}
	return time.Minute
}

// SyncRateLimiter 手动同步限流器
// 防止用户频繁触发菜单同步/拉单把平台 API 打到限流
type SyncRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

var globalLimiter = &SyncRateLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *SyncRateLimiter {
	return globalLimiter
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Check 检查是否允许执行，允许时刷新最后执行时间
func (r *SyncRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置限流键（管理员使用）
func (r *SyncRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// restaurantSyncKey 门店级限流键
func restaurantSyncKey(restaurantID int64, syncType SyncType) string {
	return fmt.Sprintf("restaurant:%d:%s", restaurantID, syncType)
}

// ==================== Gin 中间件 ====================

// SyncRateLimit 按门店 + 同步类型限流
// 路由需带 :restaurantId 路径参数，缺失时退化为全局键
func SyncRateLimit(syncType SyncType, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(syncType)
	}

	return func(c *gin.Context) {
		var key string
		if idStr := c.Param("restaurantId"); idStr != "" {
			restaurantID, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":    400,
					"message": "门店 ID 无效",
				})
				c.Abort()
				return
			}
			key = restaurantSyncKey(restaurantID, syncType)
		} else {
			key = fmt.Sprintf("global:%s", syncType)
		}

		result := GetLimiter().Check(key, interval)
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": int(result.RetryAfter.Seconds()),
					"sync_type":   syncType,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60
	if remainingSeconds == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", minutes)
	}
	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}
