package models

// CompetitorRecord 竞品记录，由模型批量产出，报告只取前3条
type CompetitorRecord struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Differentiators string `json:"differentiators"`
	URL             string `json:"url"`
}

// MarketAnalysis 市场分析结果
type MarketAnalysis struct {
	BusinessAnalysis string             `json:"businessAnalysis"` // 商业概念分析
	Queries          []string           `json:"queries"`          // 实际使用的3条搜索查询
	Competitors      []CompetitorRecord `json:"competitors"`      // 识别出的直接竞品（3-5条）
	Report           string             `json:"report"`           // 格式化后的完整报告
}

// MermaidDiagrams MVP 方案的架构图（mermaid 源码）
type MermaidDiagrams struct {
	SystemArchitecture string `json:"system_architecture"`
	ProcessFlow        string `json:"process_flow"`
}

// MvpPlan MVP 生成结果
type MvpPlan struct {
	MainResponse string          `json:"main_response"`
	Mermaid      MermaidDiagrams `json:"mermaid"`
	Code         string          `json:"code"`
}
