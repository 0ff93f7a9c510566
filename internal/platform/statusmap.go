package platform

import (
	"yemek_sync_v1_202608/internal/model"
)

// ==================== 状态映射表 ====================

// 每个平台一张固定查表，双向都显式写死，不做任何推导。
// 正向允许多对一（如 migros 把 pending/confirmed 压成一个 CONFIRMED），
// 反向为每个平台 token 固定一个规范内部状态：
// 多对一压缩的 token 反向取生命周期里最早被平台确认的状态。
// 查不到就返回 ok=false，调用方必须分支处理，禁止兜底猜测。

type statusTable struct {
	toExternal map[string]string
	toInternal map[string]string
}

var statusTables = map[string]statusTable{
	// getir 使用数字状态码
	model.PlatformGetir: {
		toExternal: map[string]string{
			model.OrderStatusPending:        "200",
			model.OrderStatusConfirmed:      "325",
			model.OrderStatusPreparing:      "350",
			model.OrderStatusReadyForPickup: "400",
			model.OrderStatusOutForDelivery: "500",
			model.OrderStatusDelivered:      "600",
			model.OrderStatusCanceled:       "900",
		},
		toInternal: map[string]string{
			"200": model.OrderStatusPending,
			"325": model.OrderStatusConfirmed,
			"350": model.OrderStatusPreparing,
			"400": model.OrderStatusReadyForPickup,
			"500": model.OrderStatusOutForDelivery,
			"550": model.OrderStatusOutForDelivery, // 骑手已到达，压缩进配送中
			"600": model.OrderStatusDelivered,
			"900": model.OrderStatusCanceled,
		},
	},

	model.PlatformYemeksepeti: {
		toExternal: map[string]string{
			model.OrderStatusPending:        "received",
			model.OrderStatusConfirmed:      "accepted",
			model.OrderStatusPreparing:      "preparing",
			model.OrderStatusReadyForPickup: "ready",
			model.OrderStatusOutForDelivery: "dispatched",
			model.OrderStatusDelivered:      "delivered",
			model.OrderStatusCanceled:       "cancelled",
		},
		toInternal: map[string]string{
			"received":   model.OrderStatusPending,
			"accepted":   model.OrderStatusConfirmed,
			"preparing":  model.OrderStatusPreparing,
			"ready":      model.OrderStatusReadyForPickup,
			"dispatched": model.OrderStatusOutForDelivery,
			"picked_up":  model.OrderStatusOutForDelivery, // 骑手取餐，压缩进配送中
			"delivered":  model.OrderStatusDelivered,
			"cancelled":  model.OrderStatusCanceled,
		},
	},

	model.PlatformTrendyol: {
		toExternal: map[string]string{
			model.OrderStatusPending:        "CREATED",
			model.OrderStatusConfirmed:      "PICKING",
			model.OrderStatusPreparing:      "PREPARING",
			model.OrderStatusReadyForPickup: "PREPARED",
			model.OrderStatusOutForDelivery: "SHIPPED",
			model.OrderStatusDelivered:      "DELIVERED",
			model.OrderStatusCanceled:       "CANCELLED",
		},
		toInternal: map[string]string{
			"CREATED":    model.OrderStatusPending,
			"PICKING":    model.OrderStatusConfirmed,
			"PREPARING":  model.OrderStatusPreparing,
			"PREPARED":   model.OrderStatusReadyForPickup,
			"SHIPPED":    model.OrderStatusOutForDelivery,
			"DELIVERED":  model.OrderStatusDelivered,
			"CANCELLED":  model.OrderStatusCanceled,
			"UNSUPPLIED": model.OrderStatusCanceled, // 缺货关单，按取消处理
		},
	},

	// migros 把 pending/confirmed 压成一个 CONFIRMED：
	// 平台收到即确认，反向规范取 confirmed
	model.PlatformMigros: {
		toExternal: map[string]string{
			model.OrderStatusPending:        "CONFIRMED",
			model.OrderStatusConfirmed:      "CONFIRMED",
			model.OrderStatusPreparing:      "PREPARING",
			model.OrderStatusReadyForPickup: "PREPARED",
			model.OrderStatusOutForDelivery: "ON_DELIVERY",
			model.OrderStatusDelivered:      "DELIVERED",
			model.OrderStatusCanceled:       "CANCELLED",
		},
		toInternal: map[string]string{
			"CONFIRMED":   model.OrderStatusConfirmed,
			"PREPARING":   model.OrderStatusPreparing,
			"PREPARED":    model.OrderStatusReadyForPickup,
			"ON_DELIVERY": model.OrderStatusOutForDelivery,
			"DELIVERED":   model.OrderStatusDelivered,
			"CANCELLED":   model.OrderStatusCanceled,
		},
	},
}

// ToExternal 内部状态 -> 平台状态 token
// ok=false 表示该内部状态在此平台无映射，调用方不得发起网络调用
func ToExternal(platform, internalStatus string) (string, bool) {
	table, exists := statusTables[platform]
	if !exists {
		return "", false
	}
	token, ok := table.toExternal[internalStatus]
	return token, ok
}

// ToInternal 平台状态 token -> 内部状态
// ok=false 表示未知 token，入单侧按 pending + 人工复核处理
func ToInternal(platform, externalToken string) (string, bool) {
	table, exists := statusTables[platform]
	if !exists {
		return "", false
	}
	status, ok := table.toInternal[externalToken]
	return status, ok
}
