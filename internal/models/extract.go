package models

import "strings"

// Status 信息充分性判定状态
type Status string

const (
	StatusSufficient   Status = "sufficient"   // 信息充分，可以生成最终结论
	StatusInsufficient Status = "insufficient" // 信息不足，需要继续追问
	StatusError        Status = "error"        // 无法判定（提取失败时的兜底值）
)

// NormalizeStatus 归一化模型输出的状态字段
// 模型被要求输出 sufficient_information / insufficient_information，
// 但实际输出大小写和措辞不稳定，按关键词归类
func NormalizeStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "insufficient"):
		return StatusInsufficient
	case strings.Contains(s, "sufficient"):
		return StatusSufficient
	default:
		return StatusError
	}
}

// ExtractedResult 从一条原始模型回复中提取的结构化结果
// Status 恒有值（提取失败兜底为 error），Payload 可为空串但不缺失
type ExtractedResult struct {
	Status    Status `json:"status"`
	Rationale string `json:"rationale"` // contemplator 段内文本
	Payload   string `json:"payload"`   // final_answer 中的 response 字段
}
