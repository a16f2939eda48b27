package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/shlokparab/builder-navigator/internal/models"
	"github.com/shlokparab/builder-navigator/internal/pkg/paths"
)

// Config 服务配置，来源：环境变量（BUILDER_NAVIGATOR_ 前缀）+ 可选 config.yaml
type Config struct {
	Provider       string        `mapstructure:"provider"`        // gemini / openai
	APIKey         string        `mapstructure:"api_key"`         // AI 服务 Key
	BaseURL        string        `mapstructure:"base_url"`        // OpenAI 兼容服务地址
	ModelName      string        `mapstructure:"model_name"`      // 模型名
	SearchProvider string        `mapstructure:"search_provider"` // serper / scrape
	SerperAPIKey   string        `mapstructure:"serper_api_key"`  // Serper Key
	Transcriber    string        `mapstructure:"transcriber"`     // off / gemini
	ListenAddr     string        `mapstructure:"listen_addr"`     // HTTP 监听地址
	LogLevel       string        `mapstructure:"log_level"`       // debug/info/warn/error
	DataDir        string        `mapstructure:"data_dir"`        // 数据目录覆盖
	SearchDelay    time.Duration `mapstructure:"search_delay"`    // 搜索调用间隔
}

// Load 加载配置，配置文件缺失不算错误
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("provider", string(models.AIProviderGemini))
	v.SetDefault("model_name", "gemini-2.0-flash")
	v.SetDefault("search_provider", "scrape")
	v.SetDefault("transcriber", "off")
	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("data_dir", paths.GetDataDir())
	v.SetDefault("search_delay", time.Second)

	v.SetEnvPrefix("BUILDER_NAVIGATOR")
	v.AutomaticEnv()
	// 兼容最初版本的环境变量名
	v.BindEnv("api_key", "BUILDER_NAVIGATOR_API_KEY", "GOOGLE_API_KEY")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(paths.GetDataDir())
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AIConfig 转换为 AI 服务配置
func (c *Config) AIConfig() *models.AIConfig {
	return &models.AIConfig{
		Provider:  models.AIProvider(c.Provider),
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		ModelName: c.ModelName,
	}
}
