package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== ExternalOrder 平台订单记录 ====================

// ExternalOrder 外部平台订单记录
// 唯一键 (platform, external_order_id)：同一平台同一单号只有一行，
// 重复投递走幂等更新，记录只做状态流转，永不删除
type ExternalOrder struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	RestaurantID int64  `gorm:"index;not null"`
	Platform     string `gorm:"size:32;not null;uniqueIndex:idx_platform_order"`

	// 平台侧单号
	ExternalOrderID string `gorm:"size:64;not null;uniqueIndex:idx_platform_order"`
	// 门店内部单号（可能尚未绑定）
	InternalOrderID *int64 `gorm:"index"`
	OrderNumber     string `gorm:"size:40;index"`

	// 状态：Status 必须属于统一状态字典，ExternalStatus 为平台原生串
	Status         string `gorm:"size:32;index;default:pending"`
	ExternalStatus string `gorm:"size:64"`
	// 平台状态未知、落到默认 pending 时置位，供人工复核
	NeedsReview  bool   `gorm:"default:false;index"`
	ReviewReason string `gorm:"size:255"`

	// 客户快照
	CustomerName  string            `gorm:"size:255"`
	CustomerPhone string            `gorm:"size:32"`
	Address       datatypes.JSONMap `gorm:"type:jsonb"`
	Note          string            `gorm:"type:text"`

	// 金额（分为单位存储）
	SubtotalAmount   int64
	DeliveryAmount   int64
	CommissionAmount int64
	GrandTotalAmount int64
	Currency         string `gorm:"size:10;default:TRY"`

	// 平台原始报文（审计/排障用，逻辑永不读取）
	RawPayload datatypes.JSON `gorm:"type:jsonb"`

	// 平台侧时间
	PlacedAt     *time.Time
	LastSyncedAt *time.Time

	// 审计字段
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// 关联
	Items []ExternalOrderItem `gorm:"foreignKey:ExternalOrderRef"`
}

func (*ExternalOrder) TableName() string {
	return "external_orders"
}

// GetGrandTotal 获取总金额（元）
func (o *ExternalOrder) GetGrandTotal() float64 {
	return float64(o.GrandTotalAmount) / 100
}

// GetSubtotal 获取小计金额（元）
func (o *ExternalOrder) GetSubtotal() float64 {
	return float64(o.SubtotalAmount) / 100
}

// GetAddressField 读取地址快照字段
func (o *ExternalOrder) GetAddressField(key string) string {
	if o.Address == nil {
		return ""
	}
	if v, ok := o.Address[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// CanTransitionTo 校验状态流转是否合法（终态后不再前进）
func (o *ExternalOrder) CanTransitionTo(status string) bool {
	if !IsValidOrderStatus(status) {
		return false
	}
	if IsTerminalStatus(o.Status) {
		return false
	}
	return true
}

// ==================== ExternalOrderItem 订单行 ====================

// ExternalOrderItem 平台订单行
// 唯一键 (external_order_ref, external_line_id)：重复投递按行覆盖，不追加
type ExternalOrderItem struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	ExternalOrderRef int64  `gorm:"index;not null;uniqueIndex:idx_order_line"`
	ExternalLineID   string `gorm:"size:64;not null;uniqueIndex:idx_order_line"`

	// 商品信息
	ProductID         int64  `gorm:"index"`
	ExternalProductID string `gorm:"size:64"`
	ProductName       string `gorm:"size:255"`

	// 数量与价格
	Quantity    int `gorm:"default:1"`
	UnitAmount  int64
	TotalAmount int64
	Currency    string `gorm:"size:10"`

	// 选项/加料（JSONB）
	Options datatypes.JSONMap `gorm:"type:jsonb"`

	// 审计
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (*ExternalOrderItem) TableName() string {
	return "external_order_items"
}

// GetUnitPrice 获取单价（元）
func (i *ExternalOrderItem) GetUnitPrice() float64 {
	return float64(i.UnitAmount) / 100
}
