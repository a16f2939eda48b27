package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoSession 没有已确认充分的持久化会话可用
var ErrNoSession = errors.New("no validated session available")

// ErrEmptyReply 补全服务对本阶段返回了空回复
var ErrEmptyReply = errors.New("completion service returned empty reply")

// ErrNoSearchResults 所有搜索查询都没有产出可用结果
var ErrNoSearchResults = errors.New("all competitor search queries failed")

// StructuredDecodeError 结构化回复无法解码（对本次请求致命，不做兜底）
type StructuredDecodeError struct {
	What   string // 哪个阶段的结构化输出，如 competitors / mvp
	Sample string // 截断后的原始回复片段
	Err    error
}

// Error 实现 error 接口
func (e *StructuredDecodeError) Error() string {
	return fmt.Sprintf("invalid structured %s response: %v (sample: %s)", e.What, e.Err, e.Sample)
}

// Unwrap 支持 errors.Is/As 链
func (e *StructuredDecodeError) Unwrap() error {
	return e.Err
}

// newDecodeError 创建结构化解码错误
func newDecodeError(what, raw string, err error) *StructuredDecodeError {
	return &StructuredDecodeError{What: what, Sample: truncateString(raw, 200), Err: err}
}

// truncateString 截断字符串用于诊断输出
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
