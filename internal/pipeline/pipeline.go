package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shlokparab/builder-navigator/internal/advisor"
	"github.com/shlokparab/builder-navigator/internal/embed"
	"github.com/shlokparab/builder-navigator/internal/llm"
	"github.com/shlokparab/builder-navigator/internal/logger"
	"github.com/shlokparab/builder-navigator/internal/models"
	"github.com/shlokparab/builder-navigator/internal/search"
	"github.com/shlokparab/builder-navigator/internal/store"

	"google.golang.org/adk/model"
)

// 日志实例
var log = logger.New("Pipeline")

// 配置常量
const (
	StepTimeout        = 60 * time.Second // 单个 LLM 阶段的最大时长
	SearchTimeout      = 20 * time.Second // 单次搜索调用的最大时长
	QueryCount         = 3                // 搜索查询固定条数
	MaxOrganicPerQuery = 20               // 每条查询聚合的最大结果数
)

// Pipeline 从持久化会话派生市场分析与 MVP 方案
type Pipeline struct {
	modelProvider advisor.ModelProvider
	provider      search.Provider
	store         *store.Store
	searchDelay   time.Duration // 相邻搜索调用之间的最小间隔
}

// New 创建分析流水线
func New(modelProvider advisor.ModelProvider, provider search.Provider, st *store.Store, searchDelay time.Duration) *Pipeline {
	return &Pipeline{
		modelProvider: modelProvider,
		provider:      provider,
		store:         st,
		searchDelay:   searchDelay,
	}
}

// MarketAnalysis 对指定会话执行市场分析
// 各步骤独立失败、独立上报：商业分析 → 查询生成 → 竞品搜索 → 竞品识别 → 报告
func (p *Pipeline) MarketAnalysis(ctx context.Context, token string) (*models.MarketAnalysis, error) {
	conv := p.store.Load(token)
	if conv == nil {
		return nil, ErrNoSession
	}

	llmModel, err := p.modelProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("create model error: %w", err)
	}

	flat := Flatten(conv)

	analysis, err := p.businessAnalysis(ctx, llmModel, flat)
	if err != nil {
		return nil, err
	}

	queries := p.synthesizeQueries(ctx, llmModel, analysis)

	snippets, err := p.searchCompetitors(ctx, queries)
	if err != nil {
		return nil, err
	}

	competitors, err := p.identifyCompetitors(ctx, llmModel, analysis, snippets)
	if err != nil {
		return nil, err
	}

	return &models.MarketAnalysis{
		BusinessAnalysis: analysis,
		Queries:          queries,
		Competitors:      competitors,
		Report:           FormatReport(analysis, competitors),
	}, nil
}

// Flatten 将对话轮渲染为线性文本
// 轮次缺少完整的两段结构时退化为原始表示
func Flatten(conv *models.Conversation) string {
	var sb strings.Builder
	for _, turn := range conv.Turns {
		if turn.User != "" && turn.Assistant != "" {
			sb.WriteString("User: " + turn.User + "\n")
			sb.WriteString("Assistant: " + turn.Assistant + "\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("%v\n", turn))
	}
	return sb.String()
}

// businessAnalysis 步骤2：总结商业概念，空回复对本请求是硬失败
func (p *Pipeline) businessAnalysis(ctx context.Context, llmModel model.LLM, flat string) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()

	prompt := embed.Render(embed.BusinessAnalysisPrompt, map[string]string{"CONVERSATION": flat})
	analysis, err := llm.Generate(stepCtx, llmModel, nil, prompt)
	if err != nil {
		return "", fmt.Errorf("business analysis error: %w", err)
	}
	if strings.TrimSpace(analysis) == "" {
		return "", fmt.Errorf("business analysis: %w", ErrEmptyReply)
	}
	return strings.TrimSpace(analysis), nil
}

// synthesizeQueries 步骤3：生成竞品搜索查询，强制恰好3条
// 结构化解码失败时退到手工逗号切分，再不足则用分析文本构造兜底查询
func (p *Pipeline) synthesizeQueries(ctx context.Context, llmModel model.LLM, analysis string) []string {
	stepCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()

	prompt := embed.Render(embed.SearchQueriesPrompt, map[string]string{"ANALYSIS": analysis})
	reply, err := llm.GenerateJSON(stepCtx, llmModel, nil, prompt)
	if err != nil {
		log.Warn("query synthesis error, using fallback queries: %v", err)
		reply = ""
	}

	queries := parseQueryList(reply)
	return coerceQueries(queries, analysis)
}

// parseQueryList 解析查询列表：先按 JSON 数组解码，失败则逗号切分去引号
func parseQueryList(reply string) []string {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil
	}

	// 剥掉代码围栏后取 [ ... ] 子串
	body := reply
	if start := strings.Index(body, "["); start != -1 {
		if end := strings.LastIndex(body, "]"); end > start {
			body = body[start : end+1]
		}
	}

	var queries []string
	if err := json.Unmarshal([]byte(body), &queries); err == nil {
		return cleanQueries(queries)
	}

	// 手工切分：去掉括号和引号
	body = strings.Trim(body, "[]")
	parts := strings.Split(body, ",")
	return cleanQueries(parts)
}

// cleanQueries 去除空白与引号，丢弃空项
func cleanQueries(raw []string) []string {
	var queries []string
	for _, q := range raw {
		q = strings.Trim(strings.TrimSpace(q), `"'`)
		if q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

// coerceQueries 把查询条数矫正为恰好 QueryCount 条
// 超出截断，不足时用分析文本构造的通用查询补齐
func coerceQueries(queries []string, analysis string) []string {
	if len(queries) > QueryCount {
		return queries[:QueryCount]
	}
	templates := []string{
		"%s competitors",
		"alternatives to %s",
		"%s market landscape",
	}
	for i := 0; len(queries) < QueryCount; i++ {
		queries = append(queries, fmt.Sprintf(templates[i%len(templates)], firstWords(analysis, 6)))
	}
	return queries
}

// firstWords 取文本的前 n 个词
func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	if len(fields) == 0 {
		return "startup idea"
	}
	return strings.Join(fields, " ")
}

// searchCompetitors 步骤4：逐条执行搜索并聚合结果
// 单条查询失败跳过（记日志继续），全部失败才算错误；
// 相邻调用之间留固定间隔，作为最小间隔策略而非真正的限流
func (p *Pipeline) searchCompetitors(ctx context.Context, queries []string) (string, error) {
	var sb strings.Builder
	usable := 0

	for i, query := range queries {
		if i > 0 && p.searchDelay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(p.searchDelay):
			}
		}

		searchCtx, cancel := context.WithTimeout(ctx, SearchTimeout)
		result, err := p.provider.Search(searchCtx, query)
		cancel()
		if err != nil {
			log.Warn("search query %q failed, skipping: %v", query, err)
			continue
		}

		count := 0
		for _, o := range result.Organic {
			if o.Title == "" || o.Link == "" {
				continue
			}
			sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", o.Title, o.Link, o.Snippet))
			count++
			if count >= MaxOrganicPerQuery {
				break
			}
		}
		if count > 0 {
			usable++
		}
		log.Debug("query %q aggregated %d entries", query, count)
	}

	if usable == 0 {
		return "", ErrNoSearchResults
	}
	return sb.String(), nil
}

// identifyCompetitors 步骤5：从聚合结果中识别直接竞品
func (p *Pipeline) identifyCompetitors(ctx context.Context, llmModel model.LLM, analysis, snippets string) ([]models.CompetitorRecord, error) {
	stepCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()

	prompt := embed.Render(embed.CompetitorsPrompt, map[string]string{
		"ANALYSIS": analysis,
		"RESULTS":  snippets,
	})
	reply, err := llm.GenerateJSON(stepCtx, llmModel, nil, prompt)
	if err != nil {
		return nil, fmt.Errorf("competitor identification error: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("competitor identification: %w", ErrEmptyReply)
	}

	body := extractJSONSlice(reply, "[", "]")
	var competitors []models.CompetitorRecord
	if err := json.Unmarshal([]byte(body), &competitors); err != nil {
		return nil, newDecodeError("competitors", reply, err)
	}
	if len(competitors) == 0 {
		return nil, newDecodeError("competitors", reply, fmt.Errorf("empty competitor list"))
	}
	return competitors, nil
}

// extractJSONSlice 取首个 open 到最后一个 close 之间的子串
// 找不到时原样返回，交给解码器失败
func extractJSONSlice(s, open, close string) string {
	start := strings.Index(s, open)
	end := strings.LastIndex(s, close)
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}
