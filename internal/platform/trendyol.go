package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/pkg/net"
)

const trendyolBaseURL = "https://api.tgoapis.com/integrator/store/meal"

// ==================== TrendyolAdapter ====================

// TrendyolAdapter trendyol-yemek 适配器
// 鉴权：Basic Auth (api key : secret) + 供应商号拼在路径里；
// 入单：平台 webhook 推送
type TrendyolAdapter struct {
	restaurantID int64
	apiKey       string
	apiSecret    string
	supplierID   string
	baseURL      string
	dispatcher   net.Dispatcher
}

var _ Adapter = (*TrendyolAdapter)(nil)

// NewTrendyolAdapter 创建 trendyol 适配器
func NewTrendyolAdapter(cfg *model.IntegrationConfig, d net.Dispatcher) *TrendyolAdapter {
	return &TrendyolAdapter{
		restaurantID: cfg.RestaurantID,
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		supplierID:   cfg.SupplierID,
		baseURL:      trendyolBaseURL,
		dispatcher:   d,
	}
}

// SetBaseURL 覆盖平台地址（测试用）
func (a *TrendyolAdapter) SetBaseURL(u string) { a.baseURL = u }

func (a *TrendyolAdapter) Platform() string { return model.PlatformTrendyol }

func (a *TrendyolAdapter) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	req, err := net.BuildBasicAuthRequest(ctx, method, a.baseURL+path, bytes.NewReader(body), a.apiKey, a.apiSecret)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	return doJSON(ctx, a.dispatcher, a.Platform(), a.restaurantID, req, out)
}

// ==================== 接口实现 ====================

func (a *TrendyolAdapter) TestConnection(ctx context.Context) error {
	if err := pingGet(ctx, a.Platform(), a.baseURL+"/suppliers/"+a.supplierID+"/stores", nil, a.apiKey, a.apiSecret); err != nil {
		return &ConnectionError{Platform: a.Platform(), Err: err}
	}
	return nil
}

func (a *TrendyolAdapter) PushOrderStatus(ctx context.Context, externalOrderID, internalStatus string, details *StatusDetails) error {
	token, ok := ToExternal(a.Platform(), internalStatus)
	if !ok {
		return &MappingError{Platform: a.Platform(), Value: internalStatus}
	}

	payload := map[string]interface{}{"status": token}
	if details != nil && details.Reason != "" {
		payload["note"] = details.Reason
	}
	body, _ := json.Marshal(payload)

	return a.do(ctx, http.MethodPut,
		"/suppliers/"+a.supplierID+"/packages/"+externalOrderID+"/status", body, nil)
}

func (a *TrendyolAdapter) CancelOrder(ctx context.Context, externalOrderID, reason string) error {
	body, _ := json.Marshal(map[string]string{"reasonText": reason})
	return a.do(ctx, http.MethodPut,
		"/suppliers/"+a.supplierID+"/packages/"+externalOrderID+"/unsupplied", body, nil)
}

// tyIDResp 创建类接口返回
type tyIDResp struct {
	ID int64 `json:"id"`
}

func (a *TrendyolAdapter) PushCategory(ctx context.Context, category *Category) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"name":        category.Name,
		"description": category.Description,
		"order":       category.Rank,
	})
	var resp tyIDResp
	if err := a.do(ctx, http.MethodPost, "/suppliers/"+a.supplierID+"/sections", body, &resp); err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.ID, 10), nil
}

func (a *TrendyolAdapter) PushProduct(ctx context.Context, product *Product) (string, error) {
	status := "PASSIVE"
	if product.Available {
		status = "ACTIVE"
	}
	payload := map[string]interface{}{
		"sectionId":   product.ExternalCategoryID,
		"name":        product.Name,
		"description": product.Description,
		"imageUrl":    product.ImageURL,
		"status":      status,
	}
	if product.SyncPrice {
		payload["sellingPrice"] = float64(product.PriceAmount) / 100
	}
	body, _ := json.Marshal(payload)
	var resp tyIDResp
	if err := a.do(ctx, http.MethodPost, "/suppliers/"+a.supplierID+"/products", body, &resp); err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.ID, 10), nil
}

func (a *TrendyolAdapter) SetProductAvailability(ctx context.Context, externalProductID string, available bool) error {
	status := "PASSIVE"
	if available {
		status = "ACTIVE"
	}
	body, _ := json.Marshal(map[string]string{"status": status})
	return a.do(ctx, http.MethodPut,
		"/suppliers/"+a.supplierID+"/products/"+externalProductID+"/status", body, nil)
}

func (a *TrendyolAdapter) FetchOrders(ctx context.Context, since time.Time, limit int) ([]InboundOrder, error) {
	return nil, ErrPullNotSupported
}

// ==================== 入单解析 ====================

// tyOrder trendyol 订单报文
type tyOrder struct {
	OrderNumber string `json:"orderNumber"`
	PackageID   int64  `json:"packageId"`
	Status      string `json:"packageStatus"`
	OrderDate   int64  `json:"orderDate"` // 毫秒时间戳
	CustomerNote string `json:"customerNote"`
	Customer    struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
	} `json:"customer"`
	Address struct {
		City        string `json:"city"`
		District    string `json:"district"`
		AddressText string `json:"addressText"`
	} `json:"address"`
	TotalPrice      float64 `json:"totalPrice"`
	DeliveryFee     float64 `json:"deliveryFee"`
	SupplierRevenue float64 `json:"supplierRevenue"`
	Lines           []struct {
		LineID    int64   `json:"lineId"`
		ProductID int64   `json:"productId"`
		Name      string  `json:"name"`
		Quantity  int     `json:"quantity"`
		Price     float64 `json:"price"`
		Amount    float64 `json:"amount"`
	} `json:"lines"`
}

func (a *TrendyolAdapter) ParseOrder(payload []byte) (*InboundOrder, error) {
	var o tyOrder
	if err := json.Unmarshal(payload, &o); err != nil {
		return nil, fmt.Errorf("解析 trendyol 订单失败: %w", err)
	}
	if o.PackageID == 0 {
		return nil, fmt.Errorf("trendyol 订单缺少 packageId")
	}

	// 平台分成 = 总价 - 商家实收
	commission := centsFromFloat(o.TotalPrice) - centsFromFloat(o.SupplierRevenue)
	if commission < 0 {
		commission = 0
	}

	order := &InboundOrder{
		Platform:        a.Platform(),
		ExternalOrderID: strconv.FormatInt(o.PackageID, 10),
		ExternalStatus:  o.Status,
		CustomerName:    o.Customer.FirstName + " " + o.Customer.LastName,
		CustomerPhone:   o.Customer.Phone,
		Note:            o.CustomerNote,
		Address: map[string]interface{}{
			"city":     o.Address.City,
			"district": o.Address.District,
			"address":  o.Address.AddressText,
		},
		DeliveryAmount:   centsFromFloat(o.DeliveryFee),
		CommissionAmount: commission,
		GrandTotalAmount: centsFromFloat(o.TotalPrice),
		Currency:         "TRY",
		Raw:              payload,
	}

	if o.OrderDate > 0 {
		t := time.UnixMilli(o.OrderDate)
		order.PlacedAt = &t
	}

	var subtotal int64
	for _, l := range o.Lines {
		item := InboundOrderItem{
			ExternalLineID:    strconv.FormatInt(l.LineID, 10),
			ExternalProductID: strconv.FormatInt(l.ProductID, 10),
			ProductName:       l.Name,
			Quantity:          l.Quantity,
			UnitAmount:        centsFromFloat(l.Price),
			TotalAmount:       centsFromFloat(l.Amount),
		}
		subtotal += item.TotalAmount
		order.Items = append(order.Items, item)
	}
	order.SubtotalAmount = subtotal

	return order, nil
}
