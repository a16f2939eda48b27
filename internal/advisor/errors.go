package advisor

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse 补全服务返回了空回复
var ErrEmptyResponse = errors.New("completion service returned empty response")

// parseSampleLimit 诊断样本的最大长度
const parseSampleLimit = 200

// ParseError 响应信封无法恢复解析，附带截断的原文样本用于诊断
type ParseError struct {
	Reason string // 失败原因，如 missing rationale markers
	Sample string // 截断后的原始回复片段
}

// Error 实现 error 接口
func (e *ParseError) Error() string {
	return fmt.Sprintf("unprocessable response: %s (sample: %s)", e.Reason, e.Sample)
}

// newParseError 创建解析错误，原文按上限截断
func newParseError(reason, raw string) *ParseError {
	return &ParseError{
		Reason: reason,
		Sample: truncateString(raw, parseSampleLimit),
	}
}

// truncateString 截断字符串用于日志和诊断输出
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
