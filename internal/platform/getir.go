package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/pkg/net"
)

const getirBaseURL = "https://food-api.getirapi.com/v2"

// ==================== GetirAdapter ====================

// GetirAdapter getir 适配器
// 鉴权：餐厅密钥换登录 token，token 进程内缓存到过期前刷新；
// 入单：拉取型，靠 FetchOrders 轮询，不走 webhook
type GetirAdapter struct {
	restaurantID int64
	appKey       string
	secretKey    string
	baseURL      string
	dispatcher   net.Dispatcher

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ Adapter = (*GetirAdapter)(nil)

// NewGetirAdapter 创建 getir 适配器
func NewGetirAdapter(cfg *model.IntegrationConfig, d net.Dispatcher) *GetirAdapter {
	return &GetirAdapter{
		restaurantID: cfg.RestaurantID,
		appKey:       cfg.APIKey,
		secretKey:    cfg.SharedSecret,
		baseURL:      getirBaseURL,
		dispatcher:   d,
	}
}

// SetBaseURL 覆盖平台地址（测试用）
func (a *GetirAdapter) SetBaseURL(u string) { a.baseURL = u }

func (a *GetirAdapter) Platform() string { return model.PlatformGetir }

// ==================== 鉴权 ====================

// getirLoginResp 登录响应
type getirLoginResp struct {
	Token string `json:"token"`
}

// login 用餐厅密钥换 token（有效期 1 小时，提前 5 分钟刷新）
func (a *GetirAdapter) login(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.tokenExpiry) {
		return a.token, nil
	}

	body, _ := json.Marshal(map[string]string{
		"appSecretKey":        a.appKey,
		"restaurantSecretKey": a.secretKey,
	})
	req, err := net.BuildJSONRequest(ctx, http.MethodPost, a.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构建登录请求失败: %w", err)
	}

	var resp getirLoginResp
	if err := doJSON(ctx, a.dispatcher, a.Platform(), a.restaurantID, req, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &RemoteError{Platform: a.Platform(), StatusCode: 401, Message: "登录响应缺少 token"}
	}

	a.token = resp.Token
	a.tokenExpiry = time.Now().Add(55 * time.Minute)
	return a.token, nil
}

// doAuthed 携带 token 调用并解析响应
func (a *GetirAdapter) doAuthed(ctx context.Context, method, path string, body []byte, out interface{}) error {
	token, err := a.login(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := net.BuildTokenRequest(ctx, method, a.baseURL+path, reader, token)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	return doJSON(ctx, a.dispatcher, a.Platform(), a.restaurantID, req, out)
}

// ==================== 接口实现 ====================

func (a *GetirAdapter) TestConnection(ctx context.Context) error {
	if _, err := a.login(ctx); err != nil {
		return &ConnectionError{Platform: a.Platform(), Err: err}
	}
	return nil
}

func (a *GetirAdapter) PushOrderStatus(ctx context.Context, externalOrderID, internalStatus string, details *StatusDetails) error {
	token, ok := ToExternal(a.Platform(), internalStatus)
	if !ok {
		return &MappingError{Platform: a.Platform(), Value: internalStatus}
	}

	payload := map[string]interface{}{"status": token}
	if details != nil && details.Reason != "" {
		payload["note"] = details.Reason
	}
	body, _ := json.Marshal(payload)

	return a.doAuthed(ctx, http.MethodPut, "/food-orders/"+externalOrderID+"/status", body, nil)
}

func (a *GetirAdapter) CancelOrder(ctx context.Context, externalOrderID, reason string) error {
	body, _ := json.Marshal(map[string]string{"cancelNote": reason})
	return a.doAuthed(ctx, http.MethodPost, "/food-orders/"+externalOrderID+"/cancel", body, nil)
}

// getirIDResp 创建类接口返回的平台 ID
type getirIDResp struct {
	ID string `json:"id"`
}

func (a *GetirAdapter) PushCategory(ctx context.Context, category *Category) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"name":   category.Name,
		"note":   category.Description,
		"weight": category.Rank,
	})
	var resp getirIDResp
	if err := a.doAuthed(ctx, http.MethodPost, "/menus/categories", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (a *GetirAdapter) PushProduct(ctx context.Context, product *Product) (string, error) {
	payload := map[string]interface{}{
		"categoryId":  product.ExternalCategoryID,
		"name":        product.Name,
		"description": product.Description,
		"imageURL":    product.ImageURL,
		"isAvailable": product.Available,
	}
	if product.SyncPrice {
		payload["price"] = float64(product.PriceAmount) / 100
	}
	body, _ := json.Marshal(payload)
	var resp getirIDResp
	if err := a.doAuthed(ctx, http.MethodPost, "/menus/products", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (a *GetirAdapter) SetProductAvailability(ctx context.Context, externalProductID string, available bool) error {
	status := "INACTIVE"
	if available {
		status = "ACTIVE"
	}
	body, _ := json.Marshal(map[string]string{"status": status})
	return a.doAuthed(ctx, http.MethodPut, "/menus/products/"+externalProductID+"/status", body, nil)
}

// ==================== 拉单 ====================

// getirOrder getir 订单报文
type getirOrder struct {
	ID           string  `json:"id"`
	Status       int     `json:"status"`
	ClientName   string  `json:"clientName"`
	ClientPhone  string  `json:"clientPhoneNumber"`
	ClientNote   string  `json:"clientNote"`
	TotalPrice   float64 `json:"totalPrice"`
	DeliveryFee  float64 `json:"deliveryFee"`
	CheckoutDate string  `json:"checkoutDate"`
	Address      struct {
		District string `json:"district"`
		Address  string `json:"address"`
		City     string `json:"city"`
	} `json:"deliveryAddress"`
	Products []struct {
		ID        string  `json:"id"`
		ProductID string  `json:"product"`
		Name      string  `json:"name"`
		Count     int     `json:"count"`
		Price     float64 `json:"price"`
		Total     float64 `json:"totalPrice"`
	} `json:"products"`
}

func (a *GetirAdapter) FetchOrders(ctx context.Context, since time.Time, limit int) ([]InboundOrder, error) {
	params := url.Values{}
	params.Set("from", strconv.FormatInt(since.Unix(), 10))
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Orders []json.RawMessage `json:"foodOrders"`
	}
	if err := a.doAuthed(ctx, http.MethodGet, "/food-orders?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	orders := make([]InboundOrder, 0, len(resp.Orders))
	for _, raw := range resp.Orders {
		o, err := a.ParseOrder(raw)
		if err != nil {
			// 单笔坏单跳过，不拖垮整批
			continue
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (a *GetirAdapter) ParseOrder(payload []byte) (*InboundOrder, error) {
	var o getirOrder
	if err := json.Unmarshal(payload, &o); err != nil {
		return nil, fmt.Errorf("解析 getir 订单失败: %w", err)
	}
	if o.ID == "" {
		return nil, fmt.Errorf("getir 订单缺少 id")
	}

	order := &InboundOrder{
		Platform:        a.Platform(),
		ExternalOrderID: o.ID,
		ExternalStatus:  strconv.Itoa(o.Status),
		CustomerName:    o.ClientName,
		CustomerPhone:   o.ClientPhone,
		Note:            o.ClientNote,
		Address: map[string]interface{}{
			"city":     o.Address.City,
			"district": o.Address.District,
			"address":  o.Address.Address,
		},
		DeliveryAmount:   centsFromFloat(o.DeliveryFee),
		GrandTotalAmount: centsFromFloat(o.TotalPrice),
		Currency:         "TRY",
		Raw:              payload,
	}

	if t, err := time.Parse(time.RFC3339, o.CheckoutDate); err == nil {
		order.PlacedAt = &t
	}

	var subtotal int64
	for _, p := range o.Products {
		item := InboundOrderItem{
			ExternalLineID:    p.ID,
			ExternalProductID: p.ProductID,
			ProductName:       p.Name,
			Quantity:          p.Count,
			UnitAmount:        centsFromFloat(p.Price),
			TotalAmount:       centsFromFloat(p.Total),
		}
		subtotal += item.TotalAmount
		order.Items = append(order.Items, item)
	}
	order.SubtotalAmount = subtotal

	return order, nil
}
