package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"yemek_sync_v1_202608/internal/model"
	"yemek_sync_v1_202608/pkg/net"
)

const yemeksepetiBaseURL = "https://integration-api.yemeksepeti.com/v2"

// ==================== YemeksepetiAdapter ====================

// YemeksepetiAdapter yemeksepeti 适配器
// 鉴权：商户号 + API key 头；入单：平台 webhook 推送
type YemeksepetiAdapter struct {
	restaurantID int64
	vendorID     string
	apiKey       string
	baseURL      string
	dispatcher   net.Dispatcher
}

var _ Adapter = (*YemeksepetiAdapter)(nil)

// NewYemeksepetiAdapter 创建 yemeksepeti 适配器
func NewYemeksepetiAdapter(cfg *model.IntegrationConfig, d net.Dispatcher) *YemeksepetiAdapter {
	return &YemeksepetiAdapter{
		restaurantID: cfg.RestaurantID,
		vendorID:     cfg.VendorID,
		apiKey:       cfg.APIKey,
		baseURL:      yemeksepetiBaseURL,
		dispatcher:   d,
	}
}

// SetBaseURL 覆盖平台地址（测试用）
func (a *YemeksepetiAdapter) SetBaseURL(u string) { a.baseURL = u }

func (a *YemeksepetiAdapter) Platform() string { return model.PlatformYemeksepeti }

func (a *YemeksepetiAdapter) headers() map[string]string {
	return map[string]string{
		"X-Vendor-Id": a.vendorID,
		"X-Api-Key":   a.apiKey,
	}
}

func (a *YemeksepetiAdapter) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	req, err := net.BuildVendorRequest(ctx, method, a.baseURL+path, bytes.NewReader(body), a.headers())
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	return doJSON(ctx, a.dispatcher, a.Platform(), a.restaurantID, req, out)
}

// ==================== 接口实现 ====================

func (a *YemeksepetiAdapter) TestConnection(ctx context.Context) error {
	if err := pingGet(ctx, a.Platform(), a.baseURL+"/vendors/"+a.vendorID+"/ping", a.headers(), "", ""); err != nil {
		return &ConnectionError{Platform: a.Platform(), Err: err}
	}
	return nil
}

func (a *YemeksepetiAdapter) PushOrderStatus(ctx context.Context, externalOrderID, internalStatus string, details *StatusDetails) error {
	token, ok := ToExternal(a.Platform(), internalStatus)
	if !ok {
		return &MappingError{Platform: a.Platform(), Value: internalStatus}
	}

	payload := map[string]interface{}{"status": token}
	if details != nil && details.Reason != "" {
		payload["reason"] = details.Reason
	}
	body, _ := json.Marshal(payload)

	return a.do(ctx, http.MethodPost, "/orders/"+externalOrderID+"/status", body, nil)
}

func (a *YemeksepetiAdapter) CancelOrder(ctx context.Context, externalOrderID, reason string) error {
	body, _ := json.Marshal(map[string]string{"reason": reason})
	return a.do(ctx, http.MethodPost, "/orders/"+externalOrderID+"/cancel", body, nil)
}

// ysIDResp 创建类接口返回
type ysIDResp struct {
	ID string `json:"id"`
}

func (a *YemeksepetiAdapter) PushCategory(ctx context.Context, category *Category) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"title":       category.Name,
		"description": category.Description,
		"position":    category.Rank,
	})
	var resp ysIDResp
	if err := a.do(ctx, http.MethodPost, "/vendors/"+a.vendorID+"/catalog/categories", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (a *YemeksepetiAdapter) PushProduct(ctx context.Context, product *Product) (string, error) {
	payload := map[string]interface{}{
		"categoryId":  product.ExternalCategoryID,
		"title":       product.Name,
		"description": product.Description,
		"imageUrl":    product.ImageURL,
		"currency":    product.Currency,
		"active":      product.Available,
	}
	if product.SyncPrice {
		payload["price"] = float64(product.PriceAmount) / 100
	}
	body, _ := json.Marshal(payload)
	var resp ysIDResp
	if err := a.do(ctx, http.MethodPost, "/vendors/"+a.vendorID+"/catalog/products", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (a *YemeksepetiAdapter) SetProductAvailability(ctx context.Context, externalProductID string, available bool) error {
	body, _ := json.Marshal(map[string]bool{"available": available})
	return a.do(ctx, http.MethodPut, "/vendors/"+a.vendorID+"/catalog/products/"+externalProductID+"/availability", body, nil)
}

func (a *YemeksepetiAdapter) FetchOrders(ctx context.Context, since time.Time, limit int) ([]InboundOrder, error) {
	return nil, ErrPullNotSupported
}

// ==================== 入单解析 ====================

// ysOrder yemeksepeti 订单报文
type ysOrder struct {
	Token      string `json:"token"`
	ShortCode  string `json:"shortCode"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	Comments   struct {
		CustomerComment string `json:"customerComment"`
	} `json:"comments"`
	Customer struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		MobilePhone string `json:"mobilePhone"`
	} `json:"customer"`
	Delivery struct {
		Address struct {
			City     string `json:"city"`
			Street   string `json:"street"`
			Number   string `json:"number"`
			Postcode string `json:"postcode"`
		} `json:"address"`
	} `json:"delivery"`
	Price struct {
		SubTotal     float64 `json:"subTotal"`
		DeliveryFees float64 `json:"deliveryFees"`
		Commission   float64 `json:"commission"`
		GrandTotal   float64 `json:"grandTotal"`
		Currency     string  `json:"currency"`
	} `json:"price"`
	Products []struct {
		LineID    string  `json:"lineId"`
		RemoteID  string  `json:"remoteCode"`
		Name      string  `json:"name"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unitPrice"`
		Total     float64 `json:"totalPrice"`
	} `json:"products"`
}

func (a *YemeksepetiAdapter) ParseOrder(payload []byte) (*InboundOrder, error) {
	var o ysOrder
	if err := json.Unmarshal(payload, &o); err != nil {
		return nil, fmt.Errorf("解析 yemeksepeti 订单失败: %w", err)
	}
	if o.Token == "" {
		return nil, fmt.Errorf("yemeksepeti 订单缺少 token")
	}

	currency := o.Price.Currency
	if currency == "" {
		currency = "TRY"
	}

	order := &InboundOrder{
		Platform:        a.Platform(),
		ExternalOrderID: o.Token,
		ExternalStatus:  o.Status,
		CustomerName:    o.Customer.FirstName + " " + o.Customer.LastName,
		CustomerPhone:   o.Customer.MobilePhone,
		Note:            o.Comments.CustomerComment,
		Address: map[string]interface{}{
			"city":     o.Delivery.Address.City,
			"street":   o.Delivery.Address.Street,
			"number":   o.Delivery.Address.Number,
			"postcode": o.Delivery.Address.Postcode,
		},
		SubtotalAmount:   centsFromFloat(o.Price.SubTotal),
		DeliveryAmount:   centsFromFloat(o.Price.DeliveryFees),
		CommissionAmount: centsFromFloat(o.Price.Commission),
		GrandTotalAmount: centsFromFloat(o.Price.GrandTotal),
		Currency:         currency,
		Raw:              payload,
	}

	if t, err := time.Parse(time.RFC3339, o.CreatedAt); err == nil {
		order.PlacedAt = &t
	}

	for _, p := range o.Products {
		order.Items = append(order.Items, InboundOrderItem{
			ExternalLineID:    p.LineID,
			ExternalProductID: p.RemoteID,
			ProductName:       p.Name,
			Quantity:          p.Quantity,
			UnitAmount:        centsFromFloat(p.UnitPrice),
			TotalAmount:       centsFromFloat(p.Total),
		})
	}

	return order, nil
}
