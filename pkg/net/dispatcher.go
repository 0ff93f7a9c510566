package net

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ==================== 网络调度器 ====================

// Dispatcher 网络调度器 (通用组件)
// 所有出站平台调用统一走这里：限时、重试、退避都在此收口
type Dispatcher interface {
	// Send 发送 HTTP 请求
	// key: 业务实体的唯一标识（restaurantID），用于日志归因
	Send(ctx context.Context, key int64, req *http.Request) (*http.Response, error)
}

// Options 调度器参数
type Options struct {
	Timeout     time.Duration // 单次请求超时
	MaxAttempts int           // 最大尝试次数（含首次）
	BaseDelay   time.Duration // 退避基础间隔，逐次翻倍
}

// DefaultOptions 默认参数：10s 超时，最多 3 次，500ms 起步翻倍退避
func DefaultOptions() Options {
	return Options{
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

// httpDispatcher 是 Dispatcher 接口的具体实现
// 注意：它是私有的，外部只能通过 NewDispatcher 获取接口
type httpDispatcher struct {
	client *http.Client
	opts   Options
}

var _ Dispatcher = (*httpDispatcher)(nil)

func NewDispatcher(opts Options) Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultOptions().MaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultOptions().BaseDelay
	}
	return &httpDispatcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: opts.Timeout,
		},
		opts: opts,
	}
}

// Send 发送 HTTP 请求 (自动处理限时重试)
// 重试规则：传输错误和 5xx 退避重试，4xx 视为永久失败立即返回；
// 一个平台挂死不能拖住别的平台，单次超时由 client.Timeout 兜底
func (d *httpDispatcher) Send(ctx context.Context, key int64, req *http.Request) (*http.Response, error) {
	// 重试需要重放请求体，先整体读出来
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("读取请求体失败: %w", err)
		}
		body = b
	}

	var lastErr error
	delay := d.opts.BaseDelay

	for i := 0; i < d.opts.MaxAttempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		attempt := req.Clone(ctx)
		if body != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(body))
			attempt.ContentLength = int64(len(body))
		}

		resp, err := d.client.Do(attempt)
		if err != nil {
			lastErr = err
			continue
		}

		// 5xx 按瞬时故障重试，其余状态码交给调用方
		if resp.StatusCode >= 500 && i < d.opts.MaxAttempts-1 {
			resp.Body.Close()
			lastErr = fmt.Errorf("上游返回 %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("请求重试 %d 次后仍失败 (key=%d): %w", d.opts.MaxAttempts, key, lastErr)
}
