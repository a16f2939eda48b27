package openai

import (
	"context"
	"errors"
	"iter"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/adk/model"
)

var _ model.LLM = &OpenAIModel{}

// ErrNoChoicesInResponse OpenAI 响应中没有候选
var ErrNoChoicesInResponse = errors.New("no choices in OpenAI response")

// OpenAIModel 实现 model.LLM 接口，对接 OpenAI 兼容服务
// 只做非流式补全：调用方按整条回复解析响应信封，流式分片没有使用场景
type OpenAIModel struct {
	Client    *openai.Client
	ModelName string
}

// NewOpenAIModel 创建 OpenAI 模型
func NewOpenAIModel(modelName string, cfg openai.ClientConfig) *OpenAIModel {
	return &OpenAIModel{
		Client:    openai.NewClientWithConfig(cfg),
		ModelName: modelName,
	}
}

// Name 返回模型名称
func (o *OpenAIModel) Name() string {
	return o.ModelName
}

// GenerateContent 实现 model.LLM 接口（stream 参数被忽略，始终整条返回）
func (o *OpenAIModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		openaiReq, err := toOpenAIChatCompletionRequest(req, o.ModelName)
		if err != nil {
			yield(nil, err)
			return
		}

		resp, err := o.Client.CreateChatCompletion(ctx, openaiReq)
		if err != nil {
			yield(nil, err)
			return
		}

		llmResp, err := convertChatCompletionResponse(&resp)
		if err != nil {
			yield(nil, err)
			return
		}

		yield(llmResp, nil)
	}
}
