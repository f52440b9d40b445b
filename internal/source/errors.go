package source

import (
	"errors"
	"fmt"
	"strings"
)

// ThrottleError 表示数据源明确的限流/封禁信号，需要长时间冷却后重试。
type ThrottleError struct {
	Provider string
	Err      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("%s 限流/封禁: %v", e.Provider, e.Err)
}

func (e *ThrottleError) Unwrap() error { return e.Err }

// TransientError 表示网络抖动、响应异常等一般性失败，短暂退避后可重试。
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s 请求失败: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// HTTPStatusError 由各数据源在非 2xx 响应时返回，供统一分类。
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("返回状态码 %d", e.Code)
}

// 常见限流文案，中英文混合（Tushare 的中文提示与 requests 风格的英文提示）。
var throttleSignatures = []string{
	"limit",
	"rate",
	"too many",
	"max retries exceeded",
	"频率",
	"频繁",
	"限速",
	"最多访问",
}

// Classify 把数据源原始错误归类为 ThrottleError 或 TransientError。
// HTTP 429/403 与已知限流文案视为限流，其余一律按瞬时错误处理。
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var st *HTTPStatusError
	if errors.As(err, &st) && (st.Code == 429 || st.Code == 403) {
		return &ThrottleError{Provider: provider, Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range throttleSignatures {
		if strings.Contains(msg, sig) {
			return &ThrottleError{Provider: provider, Err: err}
		}
	}
	return &TransientError{Provider: provider, Err: err}
}
