// Package transport issues authenticated HTTP requests against the assistant
// backend and normalizes failures into typed errors. It performs no retries
// and applies no timeout of its own; callers decide both.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrEmptyBody reports a 2xx response that carried no body where the
	// caller expected a JSON document.
	ErrEmptyBody = errors.New("empty response body")

	// ErrDecodeFailed reports a non-empty body that was not valid JSON.
	ErrDecodeFailed = errors.New("failed to decode response")
)

// RequestError carries a non-2xx status together with the raw response body.
// The body is always read fully before the error is produced so server error
// detail is never lost.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
}

// Client 携带基础地址与 Bearer 凭证的 HTTP 客户端。
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// New 创建客户端，基础地址缺少 scheme 时补全为 http://。
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: NormalizeBaseURL(baseURL),
		apiKey:  apiKey,
		httpc:   &http.Client{},
	}
}

// NewWithHTTPClient allows tests and callers to supply their own http.Client.
func NewWithHTTPClient(baseURL, apiKey string, httpc *http.Client) *Client {
	c := New(baseURL, apiKey)
	if httpc != nil {
		c.httpc = httpc
	}
	return c
}

// BaseURL returns the normalized base address the client dials.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NormalizeBaseURL 为裸主机地址补上 http:// 前缀，已带 scheme 的原样保留。
// 依赖 HTTPS 的调用方必须传入完整的 https:// 地址。
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return "http://" + trimmed
}

// Call performs one authenticated request. A nil query is allowed. The
// returned bytes are nil when the response body was empty; distinguishing an
// empty body from malformed JSON is left to DecodeJSON.
func (c *Client) Call(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// 读完整个响应体后再判断状态码，错误详情不会丢失。
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response of %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Body: string(data)}
	}

	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Get issues an authenticated GET with a JSON accept posture.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Call(ctx, http.MethodGet, path, nil, nil, "application/json")
}

// PostJSON marshals payload and issues an authenticated POST.
func (c *Client) PostJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return c.Call(ctx, http.MethodPost, path, nil, strings.NewReader(string(encoded)), "application/json")
}

// PostForm issues an authenticated POST with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, path string, query, form url.Values) ([]byte, error) {
	return c.Call(ctx, http.MethodPost, path, query, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// DecodeJSON unmarshals a Call result, mapping the empty-body and
// malformed-JSON cases onto their sentinel errors.
func DecodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return nil
}
