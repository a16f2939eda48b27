package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shlokparab/builder-navigator/internal/logger"
)

var scrapeLog = logger.New("search:scrape")

// scrapeEndpoint DuckDuckGo HTML 版入口（无需 API Key 的降级方案）
const scrapeEndpoint = "https://html.duckduckgo.com/html/"

// ScrapeProvider 基于 HTML 抓取的搜索提供方
// 未配置 Serper Key 时的默认实现
type ScrapeProvider struct {
	endpoint string
	client   *http.Client
}

// NewScrapeProvider 创建抓取式搜索提供方
func NewScrapeProvider() *ScrapeProvider {
	return &ScrapeProvider{
		endpoint: scrapeEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Name 返回提供方标识
func (p *ScrapeProvider) Name() string {
	return "scrape"
}

// Search 执行一次搜索
func (p *ScrapeProvider) Search(ctx context.Context, query string) (*Result, error) {
	reqURL := p.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; builder-navigator/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape status %d", resp.StatusCode)
	}

	organic, err := parseResultPage(resp.Body)
	if err != nil {
		return nil, err
	}

	scrapeLog.Debug("query %q scraped %d results", query, len(organic))
	return &Result{Query: query, Organic: organic}, nil
}

// parseResultPage 解析搜索结果页
func parseResultPage(r io.Reader) ([]Organic, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse result page error: %w", err)
	}

	var organic []Organic
	doc.Find("div.result").Each(func(_ int, sel *goquery.Selection) {
		anchor := sel.Find("a.result__a").First()
		title := trimText(anchor.Text())
		href, _ := anchor.Attr("href")
		link := resolveRedirect(href)
		snippet := trimText(sel.Find("a.result__snippet").First().Text())

		if title == "" || link == "" {
			return
		}
		organic = append(organic, Organic{Title: title, Link: link, Snippet: snippet})
	})

	return organic, nil
}

// resolveRedirect 还原跳转链接中的真实地址（/l/?uddg=... 形式）
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// trimText 压缩文本中的空白
func trimText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
