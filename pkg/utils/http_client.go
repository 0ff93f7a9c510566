package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewPingClient 创建连通性探测用的 Resty 客户端
// 只用于各平台 TestConnection 的健康检查路径，
// 业务请求统一走 pkg/net 的 Dispatcher
func NewPingClient() *resty.Client {
	return resty.New().
		SetTimeout(10 * time.Second). // 探测失败要快速反馈，不给长超时
		SetRetryCount(2).
		SetHeader("User-Agent", "YemekSync-Go-App/1.0")
}
