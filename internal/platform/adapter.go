package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"yemek_sync_v1_202608/pkg/net"
	"yemek_sync_v1_202608/pkg/utils"
)

// ==================== 错误定义 ====================

// MappingError 状态/取值无已知翻译
// 不发网络请求、不重试，内部状态保持不变
type MappingError struct {
	Platform string
	Value    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("[%s] 状态 %q 无映射", e.Platform, e.Value)
}

// RemoteError 平台侧返回的失败
// StatusCode=0 表示传输层失败；5xx/0 为瞬时故障，4xx 为永久失败
type RemoteError struct {
	Platform   string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("[%s] 平台调用失败 [%d]: %s", e.Platform, e.StatusCode, e.Message)
}

// Temporary 是否瞬时故障（重试已由调度器在传输层做过，这里只用于归类）
func (e *RemoteError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// ConnectionError 连通性探测失败
type ConnectionError struct {
	Platform string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("[%s] 连接测试失败: %v", e.Platform, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ErrPullNotSupported 推送型平台不支持主动拉单
var ErrPullNotSupported = fmt.Errorf("该平台通过 webhook 推单，不支持主动拉取")

// ==================== 适配器输入输出 ====================

// Category 待推送的菜单分类（平台无关）
type Category struct {
	ID          int64
	Name        string
	Description string
	Rank        int
}

// Product 待推送的菜单商品（平台无关）
type Product struct {
	ID                 int64
	ExternalCategoryID string
	Name               string
	Description        string
	ImageURL           string
	PriceAmount        int64 // 分
	Currency           string
	Available          bool
	// SyncPrice 为 false 时报文不带价格字段，平台侧价格保持不变
	SyncPrice bool
}

// StatusDetails 状态推送附带信息
type StatusDetails struct {
	Reason  string
	Courier string
}

// InboundOrder 归一化后的平台订单
// 各适配器负责把平台原生报文解析成这个形状，状态仍是平台原生 token，
// token 到内部状态的翻译在入单服务里走映射表
type InboundOrder struct {
	Platform        string
	ExternalOrderID string
	ExternalStatus  string

	CustomerName  string
	CustomerPhone string
	Address       map[string]interface{}
	Note          string

	// 金额（分）
	SubtotalAmount   int64
	DeliveryAmount   int64
	CommissionAmount int64
	GrandTotalAmount int64
	Currency         string

	PlacedAt *time.Time
	Items    []InboundOrderItem

	// 原始报文快照，入库审计用
	Raw []byte
}

// InboundOrderItem 归一化后的订单行
type InboundOrderItem struct {
	ExternalLineID    string
	ExternalProductID string
	ProductName       string
	Quantity          int
	UnitAmount        int64
	TotalAmount       int64
	Options           map[string]interface{}
}

// ==================== Adapter 平台适配器 ====================

// Adapter 平台适配器统一契约
// 每个平台一个实现（变体），协议差异全部封死在实现内部；
// 新增平台只实现本接口，编排代码永不出现平台分支
type Adapter interface {
	Platform() string

	// TestConnection 连通性探测
	TestConnection(ctx context.Context) error

	// PushOrderStatus 推送订单状态
	// 先走映射表翻译，无映射直接返回 MappingError，不发网络请求
	PushOrderStatus(ctx context.Context, externalOrderID, internalStatus string, details *StatusDetails) error

	// CancelOrder 取消订单
	CancelOrder(ctx context.Context, externalOrderID, reason string) error

	// PushCategory 推送菜单分类，返回平台分类 ID
	PushCategory(ctx context.Context, category *Category) (string, error)

	// PushProduct 推送菜单商品，返回平台商品 ID
	PushProduct(ctx context.Context, product *Product) (string, error)

	// SetProductAvailability 上下架商品
	SetProductAvailability(ctx context.Context, externalProductID string, available bool) error

	// FetchOrders 主动拉单（仅拉取型平台，其余返回 ErrPullNotSupported）
	FetchOrders(ctx context.Context, since time.Time, limit int) ([]InboundOrder, error)

	// ParseOrder 解析平台推来的原生报文
	ParseOrder(payload []byte) (*InboundOrder, error)
}

// ==================== 公共请求处理 ====================

// doJSON 发送请求并解析 JSON 响应到 out（out 可为 nil）
// 状态码非 2xx 时统一转成 RemoteError；调度器已做过传输层重试
func doJSON(ctx context.Context, d net.Dispatcher, platform string, key int64, req *http.Request, out interface{}) error {
	resp, err := d.Send(ctx, key, req)
	if err != nil {
		return &RemoteError{Platform: platform, StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return &RemoteError{Platform: platform, StatusCode: resp.StatusCode, Message: string(body)}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return &RemoteError{Platform: platform, StatusCode: resp.StatusCode, Message: fmt.Sprintf("解析响应失败: %v", err)}
		}
	}
	return nil
}

// pingGet 连通性探测专用的轻量 GET
// 走独立的探测客户端而不是调度器，探测不占业务通道的重试配额
func pingGet(ctx context.Context, platform, url string, headers map[string]string, basicUser, basicPass string) error {
	req := utils.NewPingClient().R().SetContext(ctx).SetHeaders(headers)
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}

	resp, err := req.Get(url)
	if err != nil {
		return &RemoteError{Platform: platform, StatusCode: 0, Message: err.Error()}
	}
	if resp.StatusCode() >= 400 {
		return &RemoteError{Platform: platform, StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	return nil
}

// centsFromFloat 平台金额多为浮点元，统一转成分入库
func centsFromFloat(v float64) int64 {
	return int64(v*100 + 0.5)
}
