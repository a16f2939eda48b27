package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/shlokparab/builder-navigator/internal/models"
	"github.com/shlokparab/builder-navigator/internal/search"
	"github.com/shlokparab/builder-navigator/internal/store"
)

// fakeLLM 按脚本依次返回预置回复的假模型
type fakeLLM struct {
	replies []string
	calls   int
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		reply := ""
		if f.calls < len(f.replies) {
			reply = f.replies[f.calls]
		}
		f.calls++
		yield(&model.LLMResponse{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{genai.NewPartFromText(reply)},
			},
		}, nil)
	}
}

// fakeSearch 按查询返回预置结果的假搜索源
type fakeSearch struct {
	results map[string]*search.Result
	err     error
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) Search(ctx context.Context, query string) (*search.Result, error) {
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, fmt.Errorf("no result for %q", query)
}

// newTestPipeline 构造带假依赖的流水线，搜索间隔为0
func newTestPipeline(t *testing.T, fake *fakeLLM, provider search.Provider) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("创建临时存储失败: %v", err)
	}
	mp := func(ctx context.Context) (model.LLM, error) { return fake, nil }
	return New(mp, provider, st, 0), st
}

// savedConversation 预置一个已落盘的会话
func savedConversation(t *testing.T, st *store.Store, token string) {
	t.Helper()
	conv := &models.Conversation{Turns: []models.Turn{
		{User: "An AI meal planner for busy parents", Assistant: "The idea is well defined."},
	}}
	if err := st.Save(token, conv); err != nil {
		t.Fatalf("预置会话失败: %v", err)
	}
}

// TestCoerceQueries 测试查询条数矫正
func TestCoerceQueries(t *testing.T) {
	analysis := "AI meal planning service for busy parents with weekly budgets"

	t.Run("超出截断为3条", func(t *testing.T) {
		got := coerceQueries([]string{"a", "b", "c", "d", "e"}, analysis)
		if len(got) != QueryCount {
			t.Fatalf("条数错误: %d", len(got))
		}
		if got[0] != "a" || got[2] != "c" {
			t.Errorf("截断顺序错误: %v", got)
		}
	})

	t.Run("不足补齐为3条", func(t *testing.T) {
		got := coerceQueries([]string{"only one"}, analysis)
		if len(got) != QueryCount {
			t.Fatalf("条数错误: %d", len(got))
		}
		if got[0] != "only one" {
			t.Errorf("原查询丢失: %v", got)
		}
		if !strings.Contains(got[1], "AI meal planning") {
			t.Errorf("兜底查询未带分析文本: %q", got[1])
		}
	})

	t.Run("空列表全部兜底", func(t *testing.T) {
		got := coerceQueries(nil, analysis)
		if len(got) != QueryCount {
			t.Fatalf("条数错误: %d", len(got))
		}
		for _, q := range got {
			if q == "" {
				t.Error("兜底查询为空")
			}
		}
	})
}

// TestParseQueryList 测试查询列表解析
func TestParseQueryList(t *testing.T) {
	t.Run("规范JSON数组", func(t *testing.T) {
		got := parseQueryList(`["meal planner apps", "grocery list tools", "family nutrition services"]`)
		if len(got) != 3 || got[1] != "grocery list tools" {
			t.Errorf("解析错误: %v", got)
		}
	})

	t.Run("围栏包裹的数组", func(t *testing.T) {
		got := parseQueryList("```json\n[\"a\", \"b\"]\n```")
		if len(got) != 2 || got[0] != "a" {
			t.Errorf("解析错误: %v", got)
		}
	})

	t.Run("逗号切分兜底", func(t *testing.T) {
		got := parseQueryList(`"meal planner apps", "grocery tools", unquoted query`)
		if len(got) != 3 {
			t.Fatalf("条数错误: %v", got)
		}
		if got[2] != "unquoted query" {
			t.Errorf("无引号项处理错误: %q", got[2])
		}
	})

	t.Run("空回复返回nil", func(t *testing.T) {
		if got := parseQueryList("  "); got != nil {
			t.Errorf("期望 nil, 实际 %v", got)
		}
	})
}

// TestFlatten 测试对话线性化
func TestFlatten(t *testing.T) {
	conv := &models.Conversation{Turns: []models.Turn{
		{User: "hello", Assistant: "hi"},
	}}
	flat := Flatten(conv)
	if !strings.Contains(flat, "User: hello") || !strings.Contains(flat, "Assistant: hi") {
		t.Errorf("线性化格式错误: %q", flat)
	}
}

// TestSearchCompetitors 测试搜索聚合的部分失败语义
func TestSearchCompetitors(t *testing.T) {
	t.Run("部分查询失败仍继续", func(t *testing.T) {
		provider := &fakeSearch{results: map[string]*search.Result{
			"q1": {Query: "q1", Organic: []search.Organic{
				{Title: "Mealime", Link: "https://mealime.com", Snippet: "meal planning app"},
			}},
		}}
		p, _ := newTestPipeline(t, &fakeLLM{}, provider)

		snippets, err := p.searchCompetitors(context.Background(), []string{"q1", "q2", "q3"})
		if err != nil {
			t.Fatalf("聚合失败: %v", err)
		}
		if !strings.Contains(snippets, "Mealime") {
			t.Errorf("结果缺失: %q", snippets)
		}
	})

	t.Run("全部查询失败才算错误", func(t *testing.T) {
		provider := &fakeSearch{err: errors.New("network down")}
		p, _ := newTestPipeline(t, &fakeLLM{}, provider)

		_, err := p.searchCompetitors(context.Background(), []string{"q1", "q2", "q3"})
		if !errors.Is(err, ErrNoSearchResults) {
			t.Fatalf("期望 ErrNoSearchResults, 实际 %v", err)
		}
	})

	t.Run("缺标题或链接的条目被丢弃", func(t *testing.T) {
		provider := &fakeSearch{results: map[string]*search.Result{
			"q1": {Query: "q1", Organic: []search.Organic{
				{Title: "", Link: "https://x.com", Snippet: "no title"},
				{Title: "Valid", Link: "https://valid.com", Snippet: "ok"},
			}},
		}}
		p, _ := newTestPipeline(t, &fakeLLM{}, provider)

		snippets, err := p.searchCompetitors(context.Background(), []string{"q1"})
		if err != nil {
			t.Fatalf("聚合失败: %v", err)
		}
		if strings.Contains(snippets, "no title") {
			t.Errorf("无标题条目未被丢弃: %q", snippets)
		}
		if !strings.Contains(snippets, "Valid") {
			t.Errorf("有效条目丢失: %q", snippets)
		}
	})
}

// TestFormatReport 测试报告拼装
func TestFormatReport(t *testing.T) {
	t.Run("竞品不足3条按实际输出", func(t *testing.T) {
		report := FormatReport("A meal planner.", []models.CompetitorRecord{
			{Name: "mealime", Description: "meal planning app", URL: "https://mealime.com"},
		})
		if !strings.Contains(report, "1. Mealime") {
			t.Errorf("竞品名未标题化: %q", report)
		}
		if strings.Contains(report, "2.") {
			t.Errorf("不应出现第二条: %q", report)
		}
	})

	t.Run("超过3条只取前3", func(t *testing.T) {
		var comps []models.CompetitorRecord
		for i := 0; i < 5; i++ {
			comps = append(comps, models.CompetitorRecord{Name: fmt.Sprintf("comp%d", i)})
		}
		report := FormatReport("analysis", comps)
		if strings.Contains(report, "4.") {
			t.Errorf("未截断到前3: %q", report)
		}
	})

	t.Run("无竞品时输出占位文案", func(t *testing.T) {
		report := FormatReport("analysis", nil)
		if !strings.Contains(report, "No direct competitors identified.") {
			t.Errorf("占位文案缺失: %q", report)
		}
	})

	t.Run("已有大写不被破坏", func(t *testing.T) {
		report := FormatReport("analysis", []models.CompetitorRecord{{Name: "OpenAI"}})
		if !strings.Contains(report, "OpenAI") {
			t.Errorf("大写被破坏: %q", report)
		}
	})
}

// TestMarketAnalysisNoSession 测试无持久化会话时的失败
func TestMarketAnalysisNoSession(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeLLM{}, &fakeSearch{})

	_, err := p.MarketAnalysis(context.Background(), "missing-token")
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("期望 ErrNoSession, 实际 %v", err)
	}
}

// TestMarketAnalysisEndToEnd 测试完整分析流程（全假依赖）
func TestMarketAnalysisEndToEnd(t *testing.T) {
	fake := &fakeLLM{replies: []string{
		"This is an AI meal planning service for busy parents.",
		`["meal planner apps", "grocery tools", "nutrition services"]`,
		`[{"name": "Mealime", "description": "meal planning app", "differentiators": "recipes", "url": "https://mealime.com"}]`,
	}}
	provider := &fakeSearch{results: map[string]*search.Result{
		"meal planner apps": {Organic: []search.Organic{
			{Title: "Mealime", Link: "https://mealime.com", Snippet: "app"},
		}},
		"grocery tools": {Organic: []search.Organic{
			{Title: "AnyList", Link: "https://anylist.com", Snippet: "lists"},
		}},
		"nutrition services": {Organic: []search.Organic{
			{Title: "Noom", Link: "https://noom.com", Snippet: "coaching"},
		}},
	}}

	p, st := newTestPipeline(t, fake, provider)
	savedConversation(t, st, "token-1")

	analysis, err := p.MarketAnalysis(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if len(analysis.Queries) != QueryCount {
		t.Errorf("查询条数错误: %v", analysis.Queries)
	}
	if len(analysis.Competitors) != 1 || analysis.Competitors[0].Name != "Mealime" {
		t.Errorf("竞品识别错误: %+v", analysis.Competitors)
	}
	if !strings.Contains(analysis.Report, "Market Analysis Report") {
		t.Errorf("报告缺头部: %q", analysis.Report)
	}
}

// TestGenerateMVP 测试 MVP 生成
func TestGenerateMVP(t *testing.T) {
	t.Run("规范回复", func(t *testing.T) {
		fake := &fakeLLM{replies: []string{
			`{"main_response": "Build a weekly menu generator first.", "mermaid": {"system_architecture": "graph TD", "process_flow": "graph LR"}, "code": "package main"}`,
		}}
		p, st := newTestPipeline(t, fake, &fakeSearch{})
		savedConversation(t, st, "token-1")

		plan, err := p.GenerateMVP(context.Background(), "token-1")
		if err != nil {
			t.Fatalf("生成失败: %v", err)
		}
		if plan.MainResponse != "Build a weekly menu generator first." {
			t.Errorf("主回复错误: %q", plan.MainResponse)
		}
		if plan.Mermaid.SystemArchitecture != "graph TD" {
			t.Errorf("架构图错误: %q", plan.Mermaid.SystemArchitecture)
		}
	})

	t.Run("解码失败上报结构化错误", func(t *testing.T) {
		fake := &fakeLLM{replies: []string{"not json at all"}}
		p, st := newTestPipeline(t, fake, &fakeSearch{})
		savedConversation(t, st, "token-1")

		_, err := p.GenerateMVP(context.Background(), "token-1")
		var decodeErr *StructuredDecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("期望 StructuredDecodeError, 实际 %v", err)
		}
		if decodeErr.What != "mvp" {
			t.Errorf("阶段标识错误: %s", decodeErr.What)
		}
	})

	t.Run("无会话时失败", func(t *testing.T) {
		p, _ := newTestPipeline(t, &fakeLLM{}, &fakeSearch{})
		_, err := p.GenerateMVP(context.Background(), "missing")
		if !errors.Is(err, ErrNoSession) {
			t.Fatalf("期望 ErrNoSession, 实际 %v", err)
		}
	})
}
