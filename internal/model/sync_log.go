package model

import (
	"time"

	"github.com/lib/pq"
)

// SyncType 同步类型
const (
	SyncTypeFull        = "full"        // 全量
	SyncTypeIncremental = "incremental" // 增量
	SyncTypeOrderStatus = "order_push"  // 订单状态/取消扇出
	SyncTypeAvail       = "avail_push"  // 商品上下架扇出
)

// ==================== SyncAttemptLog 同步流水 ====================

// SyncAttemptLog 一次同步执行的流水记录
// 只追加：同步开始时落一行，结束时补齐计数和错误；
// 仅供运营排障查询，同步逻辑自身永不读取
type SyncAttemptLog struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	RunID        string `gorm:"size:40;uniqueIndex"`
	RestaurantID int64  `gorm:"index;not null"`
	Platform     string `gorm:"size:32;index;not null"`
	SyncType     string `gorm:"size:16;default:'incremental'"`

	// 计数
	CategoriesSynced int `gorm:"default:0"`
	CategoriesFailed int `gorm:"default:0"`
	ProductsSynced   int `gorm:"default:0"`
	ProductsFailed   int `gorm:"default:0"`

	// 错误清单
	Errors pq.StringArray `gorm:"type:text[]"`

	// 起止时间
	StartedAt  time.Time
	FinishedAt *time.Time

	CreatedAt time.Time
}

func (*SyncAttemptLog) TableName() string {
	return "sync_attempt_logs"
}

// Duration 返回执行耗时，未结束返回 0
func (l *SyncAttemptLog) Duration() time.Duration {
	if l.FinishedAt == nil {
		return 0
	}
	return l.FinishedAt.Sub(l.StartedAt)
}
