package llm

import (
	"context"
	"strings"

	"github.com/shlokparab/builder-navigator/internal/models"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Generate 发起一次补全调用并聚合文本回复
// history 为既有对话内容（可为 nil），prompt 作为新的 user 轮追加
// thinking 片段不计入结果；回复可能为空串，由调用方判定
func Generate(ctx context.Context, llm model.LLM, history []*genai.Content, prompt string) (string, error) {
	return generate(ctx, llm, history, prompt, "")
}

// GenerateJSON 发起一次要求 JSON 输出的补全调用
// 仅是 best-effort：模型不保证遵守，调用方仍需防御性解析
func GenerateJSON(ctx context.Context, llm model.LLM, history []*genai.Content, prompt string) (string, error) {
	return generate(ctx, llm, history, prompt, "application/json")
}

func generate(ctx context.Context, llm model.LLM, history []*genai.Content, prompt string, mimeType string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText(prompt)},
	})

	req := &model.LLMRequest{
		Contents: contents,
	}
	if mimeType != "" {
		req.Config = &genai.GenerateContentConfig{
			ResponseMIMEType: mimeType,
		}
	}

	var result strings.Builder
	for resp, err := range llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part.Thought {
				continue
			}
			if part.Text != "" {
				result.WriteString(part.Text)
			}
		}
	}
	return result.String(), nil
}

// HistoryFromTurns 将对话轮转换为 genai 内容序列
func HistoryFromTurns(turns []models.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns)*2)
	for _, t := range turns {
		contents = append(contents,
			&genai.Content{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(t.User)}},
			&genai.Content{Role: "model", Parts: []*genai.Part{genai.NewPartFromText(t.Assistant)}},
		)
	}
	return contents
}
