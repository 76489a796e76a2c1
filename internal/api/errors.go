package api

import "fmt"

// ValidationError 输入在发出请求之前就被拒绝
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransportError 网络失败、非 2xx 状态码或无法解析的响应体。
// Error() 只返回人类可读的信息，调用方会把它原样拼进对话记录。
type TransportError struct {
	StatusCode int // 0 表示请求没有拿到响应
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError 状态码成功但响应体缺少必需字段
type MalformedResponseError struct {
	Field string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: missing or invalid %q", e.Field)
}

func statusMessage(statusCode int) string {
	return fmt.Sprintf("request failed (status %d)", statusCode)
}
