package utils

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// RetryConfig 配置重试参数
type RetryConfig struct {
	// MaxRetries 最大重试次数，0 表示只请求一次
	MaxRetries int
	// InitialDelay 初始延迟时间
	InitialDelay time.Duration
	// MaxDelay 最大延迟时间
	MaxDelay time.Duration
	// BackoffMultiplier 退避倍数
	BackoffMultiplier float64
	// RetryableStatusCodes 需要重试的HTTP状态码
	RetryableStatusCodes []int
	// RetryableErrors 需要重试的错误类型判断函数，为 nil 时不重试网络错误
	RetryableErrors func(error) bool
}

// DefaultRetryConfig 返回默认的重试配置。
// 只重试网关类错误：对话接口是 POST，其余状态码由调用方直接展示。
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        0,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatusCodes: []int{
			http.StatusBadGateway,         // 502
			http.StatusServiceUnavailable, // 503
			http.StatusGatewayTimeout,     // 504
		},
		RetryableErrors: IsTransientError,
	}
}

// IsTransientError 上下文取消或超时不重试，其余网络错误重试
func IsTransientError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// RetryableHTTPClient 带重试机制的HTTP客户端
type RetryableHTTPClient struct {
	doer   Doer
	config *RetryConfig
}

// NewRetryableHTTPClient 创建新的带重试机制的HTTP客户端
func NewRetryableHTTPClient(doer Doer, config *RetryConfig) *RetryableHTTPClient {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &RetryableHTTPClient{
		doer:   doer,
		config: config,
	}
}

// Do 执行HTTP请求，支持重试。
// 最后一次尝试的响应无论状态码如何都原样返回，保留服务端的错误信息。
func (r *RetryableHTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, r.calculateDelay(attempt)); err != nil {
				return nil, err
			}
		}

		attemptReq, err := rewindRequest(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := r.doer.Do(attemptReq)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || !r.shouldRetryError(err) {
				break
			}
			continue
		}

		if attempt == r.config.MaxRetries || !r.shouldRetryStatus(resp.StatusCode) {
			return resp, nil
		}

		// 需要重试，丢弃这次的响应体
		resp.Body.Close()
		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if r.config.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("after %d retries: %w", r.config.MaxRetries, lastErr)
}

// calculateDelay 指数退避：initialDelay * multiplier^(attempt-1)，不超过 MaxDelay
func (r *RetryableHTTPClient) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
	if r.config.MaxDelay > 0 && delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	return time.Duration(delay)
}

func (r *RetryableHTTPClient) shouldRetryStatus(statusCode int) bool {
	for _, code := range r.config.RetryableStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

func (r *RetryableHTTPClient) shouldRetryError(err error) bool {
	if r.config.RetryableErrors == nil {
		return false
	}
	return r.config.RetryableErrors(err)
}

// rewindRequest 第一次直接使用原请求，之后通过 GetBody 重新获取请求体
func rewindRequest(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
