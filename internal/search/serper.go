package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shlokparab/builder-navigator/internal/logger"
)

var serperLog = logger.New("search:serper")

// serperEndpoint Serper 搜索接口地址
const serperEndpoint = "https://google.serper.dev/search"

// SerperClient serper.dev 搜索客户端
type SerperClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSerperClient 创建 Serper 搜索客户端
func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey:   apiKey,
		endpoint: serperEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Name 返回提供方标识
func (c *SerperClient) Name() string {
	return "serper"
}

// serperResponse Serper 返回体（只取用到的字段）
type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search 执行一次搜索
func (c *SerperClient) Search(ctx context.Context, query string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("serper status %d: %s", resp.StatusCode, string(data))
	}

	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("serper decode error: %w", err)
	}

	result := &Result{Query: query}
	for _, o := range sr.Organic {
		result.Organic = append(result.Organic, Organic{
			Title:   o.Title,
			Link:    o.Link,
			Snippet: o.Snippet,
		})
	}

	serperLog.Debug("query %q returned %d organic results", query, len(result.Organic))
	return result, nil
}
