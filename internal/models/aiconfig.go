package models

// AIProvider AI 服务提供方
type AIProvider string

const (
	AIProviderGemini AIProvider = "gemini"
	AIProviderOpenAI AIProvider = "openai"
)

// AIConfig AI 服务配置
type AIConfig struct {
	Provider  AIProvider `json:"provider"`
	APIKey    string     `json:"apiKey"`
	BaseURL   string     `json:"baseUrl"`   // OpenAI 兼容服务的自定义地址
	ModelName string     `json:"modelName"` // 如 gemini-2.0-flash / gpt-4o-mini
}
