package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Zacy-Sokach/crmassist/internal/utils"
	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "http://localhost:8001"

	// 错误响应体最多读取 1MB
	maxErrorBody = 1 << 20
)

// 全局共享的 Transport，实现连接池化
var (
	sharedTransport *http.Transport
	transportOnce   sync.Once
)

func getSharedTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			MaxConnsPerHost:       50,
			ResponseHeaderTimeout: 30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
		}
	})
	return sharedTransport
}

// NewHTTPClient 返回使用共享连接池的 HTTP 客户端
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: getSharedTransport(),
	}
}

type Client struct {
	baseURL string
	doer    utils.Doer
	logger  *slog.Logger
}

type Option func(*Client)

// WithDoer 替换底层的 HTTP 执行器（例如带重试的客户端）
func WithDoer(d utils.Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient 创建 CRM 后端客户端
// baseURL 为空时使用 DefaultBaseURL
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    NewHTTPClient(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL 返回客户端使用的后端地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendChat 把一条用户消息和此前的完整对话发给 /api/chat。
// 返回的 History 应该以发送的 history 为前缀，合并由调用方负责。
func (c *Client) SendChat(ctx context.Context, message string, history []ChatMessage) (*ChatResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &ValidationError{Message: "message must not be empty"}
	}
	if history == nil {
		history = []ChatMessage{}
	}

	req := ChatRequest{
		Message:             message,
		ConversationHistory: history,
	}

	var raw rawChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", nil, req, &raw); err != nil {
		return nil, err
	}
	return raw.toResponse()
}

func (r rawChatResponse) toResponse() (*ChatResponse, error) {
	if r.Response == nil {
		return nil, &MalformedResponseError{Field: "response"}
	}
	if r.History == nil {
		return nil, &MalformedResponseError{Field: "history"}
	}
	for i, msg := range *r.History {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			return nil, &MalformedResponseError{Field: fmt.Sprintf("history[%d].role", i)}
		}
	}
	return &ChatResponse{
		Response:      *r.Response,
		History:       *r.History,
		ThinkingSteps: r.ThinkingSteps,
	}, nil
}

// GetEmails 获取最近的邮件
func (c *Client) GetEmails(ctx context.Context, limit int) ([]Email, error) {
	var emails []Email
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/emails", q, nil, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// GetCalendarEvents 获取日历事件
func (c *Client) GetCalendarEvents(ctx context.Context, maxResults int) ([]CalendarEvent, error) {
	var events []CalendarEvent
	q := url.Values{"max_results": {strconv.Itoa(maxResults)}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/calendar/events", q, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) CreateCalendarEvent(ctx context.Context, req CreateCalendarEventRequest) (*CalendarEvent, error) {
	var event CalendarEvent
	if err := c.doJSON(ctx, http.MethodPost, "/api/calendar/events", nil, req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateCalendarEvent 更新日历事件，请求体里的 event_id 总是以路径参数为准
func (c *Client) UpdateCalendarEvent(ctx context.Context, eventID string, req UpdateCalendarEventRequest) (*CalendarEvent, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, &ValidationError{Message: "event id must not be empty"}
	}
	req.EventID = eventID

	var event CalendarEvent
	path := "/api/calendar/events/" + url.PathEscape(eventID)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) GetInteractions(ctx context.Context, limit int) ([]Interaction, error) {
	var interactions []Interaction
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/interactions", q, nil, &interactions); err != nil {
		return nil, err
	}
	return interactions, nil
}

func (c *Client) GetInteractionFrequency(ctx context.Context, days int) ([]InteractionFrequency, error) {
	var freq []InteractionFrequency
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/interactions/frequency", q, nil, &freq); err != nil {
		return nil, err
	}
	return freq, nil
}

func (c *Client) GetInteractionMethods(ctx context.Context) ([]InteractionMethod, error) {
	var methods []InteractionMethod
	if err := c.doJSON(ctx, http.MethodGet, "/api/interactions/methods", nil, nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// doJSON 发送 JSON 请求并把成功响应解码到 out。
// 所有失败都转换成 *TransportError。
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Message: fmt.Sprintf("encode request: %v", err), Err: err}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &TransportError{Message: fmt.Sprintf("create request: %v", err), Err: err}
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.doer.Do(httpReq)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return &TransportError{Message: networkMessage(err), Err: err}
	}
	defer resp.Body.Close()

	c.logger.LogAttrs(ctx, slog.LevelDebug, "api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("invalid response body: %v", err),
			Err:        err,
		}
	}
	return nil
}

// errorMessage 优先使用服务端返回的 detail 字段
func errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(data) > 0 {
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Detail != "" {
			return eb.Detail
		}
	}
	return statusMessage(resp.StatusCode)
}

func networkMessage(err error) string {
	var timeoutErr interface{ Timeout() bool }
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.As(err, &timeoutErr) && timeoutErr.Timeout():
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	}
	return err.Error()
}
