package embed

import (
	_ "embed"
	"strings"
)

// 指令模板编译期嵌入二进制，核心代码只负责占位符替换和响应契约
// 占位符形如 ${IDEA}，避免与模板中示例 JSON 的花括号冲突

// ValidateIdeaPrompt 想法验证指令信封
//
//go:embed prompts/validate_idea.txt
var ValidateIdeaPrompt string

// BusinessAnalysisPrompt 商业概念分析指令
//
//go:embed prompts/business_analysis.txt
var BusinessAnalysisPrompt string

// SearchQueriesPrompt 竞品搜索查询生成指令
//
//go:embed prompts/search_queries.txt
var SearchQueriesPrompt string

// CompetitorsPrompt 竞品识别指令
//
//go:embed prompts/competitors.txt
var CompetitorsPrompt string

// MvpPrompt MVP 方案生成指令
//
//go:embed prompts/mvp.txt
var MvpPrompt string

// Render 替换模板中的 ${KEY} 占位符
func Render(tmpl string, vars map[string]string) string {
	result := tmpl
	for key, value := range vars {
		result = strings.ReplaceAll(result, "${"+key+"}", value)
	}
	return result
}
