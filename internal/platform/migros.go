package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/pkg/net"
	"yemek_sync_v1_202608/pkg/secure"
)

const migrosBaseURL = "https://integration.migrosyemek.com.tr/api/v1"

// ==================== MigrosAdapter ====================

// MigrosAdapter migros-yemek 适配器
// 鉴权：门店号 + API key 头；
// 报文：请求/响应体整体加密，信封 {"value": "<密文>"}，
// 密钥为平台线下下发的共享密钥
type MigrosAdapter struct {
	restaurantID int64
	storeID      string
	apiKey       string
	secret       string
	baseURL      string
	dispatcher   net.Dispatcher
}

var _ Adapter = (*MigrosAdapter)(nil)

// NewMigrosAdapter 创建 migros 适配器
func NewMigrosAdapter(cfg *model.IntegrationConfig, d net.Dispatcher) *MigrosAdapter {
	return &MigrosAdapter{
		restaurantID: cfg.RestaurantID,
		storeID:      cfg.StoreID,
		apiKey:       cfg.APIKey,
		secret:       cfg.SharedSecret,
		baseURL:      migrosBaseURL,
		dispatcher:   d,
	}
}

// SetBaseURL 覆盖平台地址（测试用）
func (a *MigrosAdapter) SetBaseURL(u string) { a.baseURL = u }

func (a *MigrosAdapter) Platform() string { return model.PlatformMigros }

// envelope 加密信封
type envelope struct {
	Value string `json:"value"`
}

// doEncrypted 加密请求体、发送、解密响应体
// out 为 nil 时忽略响应内容；响应不是信封格式按 DecodeError 处理
func (a *MigrosAdapter) doEncrypted(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		plain, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		value, err := secure.Encode(plain, a.secret)
		if err != nil {
			return fmt.Errorf("加密请求失败: %w", err)
		}
		body, _ = json.Marshal(envelope{Value: value})
	}

	req, err := net.BuildVendorRequest(ctx, method, a.baseURL+path, bytes.NewReader(body), map[string]string{
		"X-Store-Id": a.storeID,
		"X-Api-Key":  a.apiKey,
	})
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}

	resp, err := a.dispatcher.Send(ctx, a.restaurantID, req)
	if err != nil {
		return &RemoteError{Platform: a.Platform(), StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return &RemoteError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil || env.Value == "" {
		return &secure.DecodeError{Reason: "响应不是合法信封"}
	}
	plain, err := secure.Decode(env.Value, a.secret)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return &secure.DecodeError{Reason: fmt.Sprintf("解析明文失败: %v", err)}
	}
	return nil
}

// ==================== 接口实现 ====================

func (a *MigrosAdapter) TestConnection(ctx context.Context) error {
	var out map[string]interface{}
	if err := a.doEncrypted(ctx, http.MethodPost, "/stores/ping", map[string]string{"storeId": a.storeID}, &out); err != nil {
		return &ConnectionError{Platform: a.Platform(), Err: err}
	}
	return nil
}

func (a *MigrosAdapter) PushOrderStatus(ctx context.Context, externalOrderID, internalStatus string, details *StatusDetails) error {
	token, ok := ToExternal(a.Platform(), internalStatus)
	if !ok {
		return &MappingError{Platform: a.Platform(), Value: internalStatus}
	}

	payload := map[string]interface{}{
		"orderId": externalOrderID,
		"status":  token,
	}
	if details != nil && details.Reason != "" {
		payload["note"] = details.Reason
	}

	return a.doEncrypted(ctx, http.MethodPost, "/orders/status", payload, nil)
}

func (a *MigrosAdapter) CancelOrder(ctx context.Context, externalOrderID, reason string) error {
	return a.doEncrypted(ctx, http.MethodPost, "/orders/cancel", map[string]string{
		"orderId": externalOrderID,
		"reason":  reason,
	}, nil)
}

// migrosIDResp 创建类接口返回
type migrosIDResp struct {
	ID string `json:"id"`
}

func (a *MigrosAdapter) PushCategory(ctx context.Context, category *Category) (string, error) {
	var resp migrosIDResp
	err := a.doEncrypted(ctx, http.MethodPost, "/menu/categories", map[string]interface{}{
		"name":        category.Name,
		"description": category.Description,
		"sortOrder":   category.Rank,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (a *MigrosAdapter) PushProduct(ctx context.Context, product *Product) (string, error) {
	payload := map[string]interface{}{
		"categoryId":  product.ExternalCategoryID,
		"name":        product.Name,
		"description": product.Description,
		"imageUrl":    product.ImageURL,
		"available":   product.Available,
	}
	if product.SyncPrice {
		payload["price"] = float64(product.PriceAmount) / 100
	}
	var resp migrosIDResp
	err := a.doEncrypted(ctx, http.MethodPost, "/menu/products", payload, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (a *MigrosAdapter) SetProductAvailability(ctx context.Context, externalProductID string, available bool) error {
	return a.doEncrypted(ctx, http.MethodPost, "/menu/products/availability", map[string]interface{}{
		"productId": externalProductID,
		"available": available,
	}, nil)
}

func (a *MigrosAdapter) FetchOrders(ctx context.Context, since time.Time, limit int) ([]InboundOrder, error) {
	return nil, ErrPullNotSupported
}

// ==================== 入单解析 ====================

// migrosOrder migros 订单明文报文（webhook 信封解开后）
type migrosOrder struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	OrderDate string `json:"orderDate"`
	Note      string `json:"note"`
	Customer  struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Address struct {
		City     string `json:"city"`
		District string `json:"district"`
		Detail   string `json:"detail"`
	} `json:"address"`
	Amounts struct {
		Subtotal   float64 `json:"subtotal"`
		Delivery   float64 `json:"delivery"`
		Commission float64 `json:"commission"`
		Total      float64 `json:"total"`
	} `json:"amounts"`
	Lines []struct {
		LineID    string  `json:"lineId"`
		ProductID string  `json:"productId"`
		Name      string  `json:"name"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unitPrice"`
		Total     float64 `json:"total"`
	} `json:"lines"`
}

// ParseOrder 解析 webhook 报文
// 入参是信封 JSON，先解密再解析明文
func (a *MigrosAdapter) ParseOrder(payload []byte) (*InboundOrder, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil || env.Value == "" {
		return nil, &secure.DecodeError{Reason: "webhook 报文不是合法信封"}
	}

	plain, err := secure.Decode(env.Value, a.secret)
	if err != nil {
		return nil, err
	}

	var o migrosOrder
	if err := json.Unmarshal(plain, &o); err != nil {
		return nil, fmt.Errorf("解析 migros 订单失败: %w", err)
	}
	if o.OrderID == "" {
		return nil, fmt.Errorf("migros 订单缺少 orderId")
	}

	order := &InboundOrder{
		Platform:        a.Platform(),
		ExternalOrderID: o.OrderID,
		ExternalStatus:  o.Status,
		CustomerName:    o.Customer.Name,
		CustomerPhone:   o.Customer.Phone,
		Note:            o.Note,
		Address: map[string]interface{}{
			"city":     o.Address.City,
			"district": o.Address.District,
			"address":  o.Address.Detail,
		},
		SubtotalAmount:   centsFromFloat(o.Amounts.Subtotal),
		DeliveryAmount:   centsFromFloat(o.Amounts.Delivery),
		CommissionAmount: centsFromFloat(o.Amounts.Commission),
		GrandTotalAmount: centsFromFloat(o.Amounts.Total),
		Currency:         "TRY",
		Raw:              plain, // 入库存明文快照，密文没有排障价值
	}

	if t, err := time.Parse(time.RFC3339, o.OrderDate); err == nil {
		order.PlacedAt = &t
	}

	for _, l := range o.Lines {
		order.Items = append(order.Items, InboundOrderItem{
			ExternalLineID:    l.LineID,
			ExternalProductID: l.ProductID,
			ProductName:       l.Name,
			Quantity:          l.Quantity,
			UnitAmount:        centsFromFloat(l.UnitPrice),
			TotalAmount:       centsFromFloat(l.Total),
		})
	}

	return order, nil
}
