package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shlokparab/builder-navigator/internal/advisor"
	"github.com/shlokparab/builder-navigator/internal/config"
	"github.com/shlokparab/builder-navigator/internal/llm"
	"github.com/shlokparab/builder-navigator/internal/logger"
	"github.com/shlokparab/builder-navigator/internal/pipeline"
	"github.com/shlokparab/builder-navigator/internal/pkg/paths"
	"github.com/shlokparab/builder-navigator/internal/search"
	"github.com/shlokparab/builder-navigator/internal/server"
	"github.com/shlokparab/builder-navigator/internal/store"
	"github.com/shlokparab/builder-navigator/internal/transcribe"

	adkmodel "google.golang.org/adk/model"
)

// 日志实例
var log = logger.New("Main")

// main 入口
func main() {
	root := &cobra.Command{
		Use:   "builder-navigator",
		Short: "Startup idea validation and market analysis backend",
	}
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newServeCmd 启动 HTTP 服务
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config error: %w", err)
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// runServe 组装依赖并启动服务
func runServe(ctx context.Context, cfg *config.Config) error {
	logger.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))

	sessionDir := paths.GetSessionDir()
	if cfg.DataDir != "" {
		sessionDir = filepath.Join(cfg.DataDir, "sessions")
	}
	st, err := store.New(sessionDir)
	if err != nil {
		return fmt.Errorf("init session store error: %w", err)
	}

	factory := llm.NewModelFactory()
	aiCfg := cfg.AIConfig()
	modelProvider := func(ctx context.Context) (adkmodel.LLM, error) {
		return factory.CreateModel(ctx, aiCfg)
	}

	manager := advisor.NewManager(modelProvider, st)
	manager.StartSweeper(ctx, 5*time.Minute)

	provider := buildSearchProvider(cfg)
	log.Info("search provider: %s", provider.Name())

	p := pipeline.New(modelProvider, provider, st, cfg.SearchDelay)

	var transcriber server.Transcriber
	if cfg.Transcriber == "gemini" {
		transcriber = transcribe.NewGemini(modelProvider)
		log.Info("audio transcription enabled")
	}

	srv := server.New(manager, p, transcriber)
	log.Info("provider=%s model=%s", cfg.Provider, cfg.ModelName)
	return srv.ListenAndServe(cfg.ListenAddr)
}

// buildSearchProvider 按配置选择搜索来源
// 有 Serper Key 时优先走 API，否则退到页面抓取
func buildSearchProvider(cfg *config.Config) search.Provider {
	if cfg.SearchProvider == "serper" || cfg.SerperAPIKey != "" {
		if cfg.SerperAPIKey == "" {
			log.Warn("search provider set to serper but no API key, falling back to scrape")
		} else {
			return search.NewSerperClient(cfg.SerperAPIKey)
		}
	}
	return search.NewScrapeProvider()
}
