package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/shlokparab/builder-navigator/internal/logger"
)

// 日志实例
var log = logger.New("Transcribe")

// 配置常量
const (
	FetchTimeout  = 30 * time.Second // 音频下载的最大时长
	MaxAudioBytes = 15 << 20         // 音频大小上限
)

// transcribeInstruction 转写指令，只要纯文本
const transcribeInstruction = "Transcribe the spoken content of this audio recording. " +
	"Return only the transcript text, with no commentary or formatting."

// ModelProvider 补全服务提供函数
type ModelProvider func(ctx context.Context) (model.LLM, error)

// GeminiTranscriber 基于多模态补全服务的音频转写
// 下载音频后作为 inline 数据随转写指令一并提交
type GeminiTranscriber struct {
	provider ModelProvider
	client   *http.Client
	maxBytes int64
}

// NewGemini 创建转写服务
func NewGemini(provider ModelProvider) *GeminiTranscriber {
	return &GeminiTranscriber{
		provider: provider,
		client:   &http.Client{Timeout: FetchTimeout},
		maxBytes: MaxAudioBytes,
	}
}

// Transcribe 下载音频并转写为文本
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	data, mimeType, err := t.fetchAudio(fetchCtx, audioURL)
	if err != nil {
		return "", err
	}

	llmModel, err := t.provider(ctx)
	if err != nil {
		return "", fmt.Errorf("create model error: %w", err)
	}

	req := &model.LLMRequest{
		Contents: []*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				genai.NewPartFromBytes(data, mimeType),
				genai.NewPartFromText(transcribeInstruction),
			},
		}},
	}

	var sb strings.Builder
	for resp, err := range llmModel.GenerateContent(ctx, req, false) {
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
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("transcription returned empty text")
	}

	log.Info("transcribed %d bytes of %s into %d chars", len(data), mimeType, len(text))
	return text, nil
}

// fetchAudio 下载音频，超限或非 200 状态都按错误处理
func (t *GeminiTranscriber) fetchAudio(ctx context.Context, audioURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("audio fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("audio fetch status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("audio read error: %w", err)
	}
	if int64(len(data)) > t.maxBytes {
		return nil, "", fmt.Errorf("audio exceeds %d bytes", t.maxBytes)
	}

	return data, normalizeMIME(resp.Header.Get("Content-Type")), nil
}

// normalizeMIME 清洗 Content-Type，缺失或通用二进制类型按 mp3 处理
func normalizeMIME(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		return "audio/mpeg"
	}
	return mimeType
}
