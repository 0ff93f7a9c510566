package model

// ==================== 内部订单状态（统一状态字典） ====================

// OrderStatus 内部统一订单状态
// 所有平台适配器之外的业务逻辑只允许使用这套状态，
// 平台原生状态串只能出现在 platform 包的映射表和 ExternalStatus 字段里
const (
	OrderStatusPending        = "pending"          // 待确认
	OrderStatusConfirmed      = "confirmed"        // 已接单
	OrderStatusPreparing      = "preparing"        // 备餐中
	OrderStatusReadyForPickup = "ready_for_pickup" // 待取餐
	OrderStatusOutForDelivery = "out_for_delivery" // 配送中
	OrderStatusDelivered      = "delivered"        // 已送达
	OrderStatusCanceled       = "canceled"         // 已取消（终态，取消是状态不是删除）
)

// statusOrder 状态生命周期顺序，canceled 为独立终态
var statusOrder = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// IsValidOrderStatus 校验是否属于统一状态字典
func IsValidOrderStatus(status string) bool {
	if status == OrderStatusCanceled {
		return true
	}
	for _, s := range statusOrder {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminalStatus 是否终态（送达或取消后不再流转）
func IsTerminalStatus(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCanceled
}

// StatusRank 返回状态在生命周期中的序号，canceled 和未知状态返回 -1
func StatusRank(status string) int {
	for i, s := range statusOrder {
		if s == status {
			return i
		}
	}
	return -1
}

// AllOrderStatuses 返回完整状态列表（含 canceled），供映射表测试遍历
func AllOrderStatuses() []string {
	all := make([]string, 0, len(statusOrder)+1)
	all = append(all, statusOrder...)
	all = append(all, OrderStatusCanceled)
	return all
}
