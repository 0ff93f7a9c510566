package dto

import "time"

// ==================== 外部订单列表查询 ====================

// ListOrdersRequest 外部订单列表请求
type ListOrdersRequest struct {
	RestaurantID int64  `form:"restaurant_id" binding:"required"`
	Platform     string `form:"platform"`   // getir, yemeksepeti, trendyol-yemek, migros-yemek
	Status       string `form:"status"`     // 统一状态字典
	StartDate    string `form:"start_date"` // 2026-01-01
	EndDate      string `form:"end_date"`
	Page         int    `form:"page,default=1"`
	PageSize     int    `form:"page_size,default=20"`
}

// ListOrdersResponse 外部订单列表响应
type ListOrdersResponse struct {
	Total int64           `json:"total"`
	List  []OrderListItem `json:"list"`
}

// OrderListItem 外部订单列表项
type OrderListItem struct {
	ID              int64      `json:"id"`
	Platform        string     `json:"platform"`
	ExternalOrderID string     `json:"external_order_id"`
	OrderNumber     string     `json:"order_number"`
	RestaurantID    int64      `json:"restaurant_id"`
	CustomerName    string     `json:"customer_name"`
	Status          string     `json:"status"`
	ExternalStatus  string     `json:"external_status"`
	NeedsReview     bool       `json:"needs_review"`
	ItemCount       int        `json:"item_count"`
	GrandTotal      float64    `json:"grand_total"`
	Currency        string     `json:"currency"`
	PlacedAt        *time.Time `json:"placed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ==================== 外部订单详情 ====================

// OrderDetailResponse 外部订单详情响应
type OrderDetailResponse struct {
	Order *OrderVO      `json:"order"`
	Items []OrderItemVO `json:"items"`
}

// OrderVO 外部订单视图对象
type OrderVO struct {
	ID              int64                  `json:"id"`
	Platform        string                 `json:"platform"`
	ExternalOrderID string                 `json:"external_order_id"`
	InternalOrderID *int64                 `json:"internal_order_id,omitempty"`
	OrderNumber     string                 `json:"order_number"`
	RestaurantID    int64                  `json:"restaurant_id"`
	Status          string                 `json:"status"`
	ExternalStatus  string                 `json:"external_status"`
	NeedsReview     bool                   `json:"needs_review"`
	ReviewReason    string                 `json:"review_reason,omitempty"`
	CustomerName    string                 `json:"customer_name"`
	CustomerPhone   string                 `json:"customer_phone"`
	Address         map[string]interface{} `json:"address,omitempty"`
	Note            string                 `json:"note,omitempty"`
	Subtotal        float64                `json:"subtotal"`
	Delivery        float64                `json:"delivery"`
	Commission      float64                `json:"commission"`
	GrandTotal      float64                `json:"grand_total"`
	Currency        string                 `json:"currency"`
	PlacedAt        *time.Time             `json:"placed_at,omitempty"`
	LastSyncedAt    *time.Time             `json:"last_synced_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// OrderItemVO 订单明细视图对象
type OrderItemVO struct {
	ID                int64                  `json:"id"`
	ExternalLineID    string                 `json:"external_line_id"`
	ExternalProductID string                 `json:"external_product_id"`
	ProductID         int64                  `json:"product_id,omitempty"`
	ProductName       string                 `json:"product_name"`
	Quantity          int                    `json:"quantity"`
	UnitAmount        float64                `json:"unit_amount"`
	TotalAmount       float64                `json:"total_amount"`
	Options           map[string]interface{} `json:"options,omitempty"`
}

// ==================== 人工复核 ====================

// ResolveReviewRequest 复核处理请求
type ResolveReviewRequest struct {
	Status string `json:"status" binding:"required"` // 纠正后的统一状态
}
