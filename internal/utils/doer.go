package utils

import "net/http"

// Doer 接口，支持 http.Client、RetryableHTTPClient 以及测试替身
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DoerFunc 让普通函数满足 Doer
type DoerFunc func(*http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}
