package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shlokparab/builder-navigator/internal/embed"
	"github.com/shlokparab/builder-navigator/internal/llm"
	"github.com/shlokparab/builder-navigator/internal/models"
)

// GenerateMVP 基于持久化会话生成 MVP 方案
// 结构化回复解码失败作为独立错误上报，不做静默兜底
func (p *Pipeline) GenerateMVP(ctx context.Context, token string) (*models.MvpPlan, error) {
	conv := p.store.Load(token)
	if conv == nil {
		return nil, ErrNoSession
	}

	llmModel, err := p.modelProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("create model error: %w", err)
	}

	stepCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()

	prompt := embed.Render(embed.MvpPrompt, map[string]string{"CONVERSATION": Flatten(conv)})
	reply, err := llm.GenerateJSON(stepCtx, llmModel, nil, prompt)
	if err != nil {
		return nil, fmt.Errorf("mvp generation error: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("mvp generation: %w", ErrEmptyReply)
	}

	body := extractJSONSlice(reply, "{", "}")
	var plan models.MvpPlan
	if err := json.Unmarshal([]byte(body), &plan); err != nil {
		return nil, newDecodeError("mvp", reply, err)
	}
	if plan.MainResponse == "" {
		return nil, newDecodeError("mvp", reply, fmt.Errorf("missing main_response"))
	}

	log.Info("mvp plan generated, main response len: %d", len(plan.MainResponse))
	return &plan, nil
}
