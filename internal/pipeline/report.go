package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shlokparab/builder-navigator/internal/models"
)

// titleCaser 竞品展示名的大小写归一（不破坏已有大写，如 OpenAI）
var titleCaser = cases.Title(language.English, cases.NoLower)

// FormatReport 确定性地拼装市场分析报告
// 只取前3条竞品，不足3条时按实际数量输出（防越界）
func FormatReport(analysis string, competitors []models.CompetitorRecord) string {
	var sb strings.Builder

	sb.WriteString("Market Analysis Report\n")
	sb.WriteString("======================\n\n")
	sb.WriteString("Business Analysis:\n")
	sb.WriteString(strings.TrimSpace(analysis) + "\n\n")
	sb.WriteString("Top Competitors:\n")

	top := competitors
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) == 0 {
		sb.WriteString("No direct competitors identified.\n")
		return sb.String()
	}

	for i, c := range top {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, titleCaser.String(strings.TrimSpace(c.Name))))
		if c.Description != "" {
			sb.WriteString("   " + strings.TrimSpace(c.Description) + "\n")
		}
		if c.Differentiators != "" {
			sb.WriteString("   Differentiators: " + strings.TrimSpace(c.Differentiators) + "\n")
		}
		if c.URL != "" {
			sb.WriteString("   URL: " + strings.TrimSpace(c.URL) + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
