package net

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
)

// BuildJSONRequest 通用 JSON 请求构建器
// 适用方：各平台适配器
// 职责：统一封装 Content-Type/Accept，鉴权头由各平台构建函数补充
func BuildJSONRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// BuildTokenRequest 构建 Bearer Token 鉴权请求 (getir)
func BuildTokenRequest(ctx context.Context, method, url string, body io.Reader, token string) (*http.Request, error) {
	req, err := BuildJSONRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// BuildVendorRequest 构建商户头鉴权请求 (yemeksepeti / migros)
func BuildVendorRequest(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Request, error) {
	req, err := BuildJSONRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// BuildBasicAuthRequest 构建 Basic Auth 请求 (trendyol-yemek)
func BuildBasicAuthRequest(ctx context.Context, method, url string, body io.Reader, key, secret string) (*http.Request, error) {
	req, err := BuildJSONRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	cred := base64.StdEncoding.EncodeToString([]byte(key + ":" + secret))
	req.Header.Set("Authorization", "Basic "+cred)
	return req, nil
}
