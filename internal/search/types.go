package search

import "context"

// Organic 单条自然搜索结果
type Organic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Result 一次搜索调用的返回
type Result struct {
	Query   string    `json:"query"`
	Organic []Organic `json:"organic"`
}

// Provider 外部搜索服务接口，逐次调用、无状态，可能以传输错误失败
type Provider interface {
	// Search 执行一次搜索
	Search(ctx context.Context, query string) (*Result, error)
	// Name 返回提供方标识
	Name() string
}
