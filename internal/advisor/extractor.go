package advisor

import (
	"encoding/json"
	"strings"

	"github.com/shlokparab/builder-navigator/internal/models"
)

// 响应信封标记
// 模型被要求输出 contemplator（推理过程）+ final_answer（内嵌 JSON 结论）
const (
	contemplatorOpen  = "<contemplator>"
	contemplatorClose = "</contemplator>"
	finalAnswerOpen   = "<final_answer>"
	finalAnswerClose  = "</final_answer>"
)

// finalAnswerFields final_answer 段解码出的字段
type finalAnswerFields struct {
	Status   string `json:"status"`
	Response string `json:"response"`
}

// decodeStrategy 单个解码策略，ok=false 时交给下一个策略
// 严格解析 → 子串恢复 → 字段刮取，按责任链依次降级
type decodeStrategy struct {
	name string
	fn   func(body string) (finalAnswerFields, bool)
}

var decodeStrategies = []decodeStrategy{
	{"strict-json", decodeStrictJSON},
	{"brace-substring", decodeBraceSubstring},
	{"field-scrape", scrapeFields},
}

// Extract 从一条原始模型回复中提取结构化结果
// 信封标记缺失返回 *ParseError；标记齐全时不再失败，
// 解不出 status 则兜底为 error 状态（唯一允许的软失败点）
func Extract(raw string) (*models.ExtractedResult, error) {
	text := stripCodeFence(raw)

	rationale, rest, ok := cutTagged(text, contemplatorOpen, contemplatorClose)
	if !ok {
		return nil, newParseError("missing rationale markers", raw)
	}

	finalText, _, ok := cutTagged(rest, finalAnswerOpen, finalAnswerClose)
	if !ok {
		return nil, newParseError("missing final-answer markers", raw)
	}

	// 上游指令模板用双花括号保护字面 JSON，模型常会原样回显
	body := unescapeBraces(finalText)

	var fields finalAnswerFields
	for _, strategy := range decodeStrategies {
		if f, ok := strategy.fn(body); ok {
			fields = f
			log.Debug("final answer decoded by %s strategy", strategy.name)
			break
		}
	}

	status := models.NormalizeStatus(fields.Status)
	if fields.Status == "" {
		status = models.StatusError
	}

	return &models.ExtractedResult{
		Status:    status,
		Rationale: rationale,
		Payload:   fields.Response,
	}, nil
}

// stripCodeFence 剥掉首尾的 markdown 代码围栏
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// cutTagged 截取一对标记之间的内容，返回内容和标记之后的剩余文本
func cutTagged(s, open, close string) (inner, rest string, ok bool) {
	start := strings.Index(s, open)
	if start == -1 {
		return "", "", false
	}
	s = s[start+len(open):]
	end := strings.Index(s, close)
	if end == -1 {
		return "", "", false
	}
	return strings.TrimSpace(s[:end]), s[end+len(close):], true
}

// unescapeBraces 还原双花括号转义
func unescapeBraces(s string) string {
	s = strings.ReplaceAll(s, "{{", "{")
	return strings.ReplaceAll(s, "}}", "}")
}

// decodeStrictJSON 策略1：整段严格 JSON 解码
func decodeStrictJSON(body string) (finalAnswerFields, bool) {
	var fields finalAnswerFields
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &fields); err != nil {
		return finalAnswerFields{}, false
	}
	return fields, true
}

// decodeBraceSubstring 策略2：取首个 { 到最后一个 } 的子串重新解码
func decodeBraceSubstring(body string) (finalAnswerFields, bool) {
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start == -1 || end <= start {
		return finalAnswerFields{}, false
	}
	var fields finalAnswerFields
	if err := json.Unmarshal([]byte(body[start:end+1]), &fields); err != nil {
		return finalAnswerFields{}, false
	}
	return fields, true
}

// scrapeFields 策略3：按字面键名刮取字段，永不失败
// status 取引号内或逗号/换行前的值；response 处理未闭合引号、
// 无引号字符串和值内的 \" 转义
func scrapeFields(body string) (finalAnswerFields, bool) {
	return finalAnswerFields{
		Status:   scrapeValue(body, `"status"`),
		Response: scrapeResponseValue(body),
	}, true
}

// scrapeValue 刮取短字段的值（引号包裹或到逗号/换行为止）
func scrapeValue(body, key string) string {
	idx := strings.Index(body, key)
	if idx == -1 {
		return ""
	}
	rest := body[idx+len(key):]
	colon := strings.Index(rest, ":")
	if colon == -1 {
		return ""
	}
	rest = strings.TrimLeft(rest[colon+1:], " \t")

	if strings.HasPrefix(rest, `"`) {
		rest = rest[1:]
		if end := strings.Index(rest, `"`); end != -1 {
			return rest[:end]
		}
		// 引号未闭合，退到分隔符
		rest = `"` + rest
	}
	end := strings.IndexAny(rest, ",\n}")
	if end == -1 {
		end = len(rest)
	}
	return strings.Trim(strings.TrimSpace(rest[:end]), `"`)
}

// scrapeResponseValue 刮取 response 字段的值
// 值可能很长且包含逗号，不能按分隔符截断：带引号时扫描越过 \" 转义，
// 引号未闭合或根本没有引号时取剩余全部文本（final_answer 闭合标记之前）
func scrapeResponseValue(body string) string {
	idx := strings.Index(body, `"response"`)
	if idx == -1 {
		return ""
	}
	rest := body[idx+len(`"response"`):]
	colon := strings.Index(rest, ":")
	if colon == -1 {
		return ""
	}
	rest = strings.TrimLeft(rest[colon+1:], " \t\n")

	if !strings.HasPrefix(rest, `"`) {
		// 无引号：取剩余文本，去掉结尾的 JSON 残渣
		return strings.TrimSpace(strings.TrimRight(rest, " \t\n}"))
	}

	rest = rest[1:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			i++ // 跳过转义序列（含 \"）
		case '"':
			return rest[:i]
		}
	}
	// 引号未闭合：取剩余全部
	return strings.TrimSpace(strings.TrimRight(rest, " \t\n}"))
}
