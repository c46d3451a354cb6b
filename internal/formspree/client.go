package formspree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// maxResponseBytes 上游响应体读取上限
const maxResponseBytes = 1 << 20

// Client 表单托管端点客户端（Formspree 兼容）。
// 超时由调用方的 context 控制，客户端自身不设超时。
type Client struct {
	userAgent  string
	httpClient *http.Client
}

func NewClient(userAgent string) *Client {
	return &Client{
		userAgent:  userAgent,
		httpClient: &http.Client{},
	}
}

// Request 一次表单投递
type Request struct {
	URL     string
	Method  string
	Fields  url.Values
	Headers map[string]string
}

// Response 上游响应，Body 为原始 JSON
type Response struct {
	OK     bool
	Status int
	Body   []byte
}

// Send 以 application/x-www-form-urlencoded 投递表单。
// 只有网络层失败返回 error，非 2xx 通过 Response.OK 表达。
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	request, err := http.NewRequestWithContext(ctx, method, req.URL, strings.NewReader(req.Fields.Encode()))
	if err != nil {
		return Response{}, fmt.Errorf("创建表单请求失败: %w", err)
	}

	c.fillHeaders(request, req.Headers)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return Response{}, fmt.Errorf("调用表单端点失败: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("读取表单端点响应失败: %w", err)
	}

	return Response{
		OK:     response.StatusCode >= 200 && response.StatusCode < 300,
		Status: response.StatusCode,
		Body:   body,
	}, nil
}

// ErrorMessage 提取上游结构化错误 {"errors":[{"message":...}]}，无法解析时返回空串
func ErrorMessage(body []byte) string {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	messages := make([]string, 0, len(payload.Errors))
	for _, item := range payload.Errors {
		if message := strings.TrimSpace(item.Message); message != "" {
			messages = append(messages, message)
		}
	}
	return strings.Join(messages, ", ")
}

// IsTimeout 判断投递失败是否由超时引起
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) fillHeaders(request *http.Request, extra map[string]string) {
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		request.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range extra {
		request.Header.Set(key, value)
	}
}
