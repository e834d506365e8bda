package model

// ==================== AI 分析结果 ====================

// Enrichment Gemini 返回的 Shopee 上架分析结果
// 任意字段缺失时由 DefaultEnrichment 补齐，调用方拿到的永远是完整结构
type Enrichment struct {
	ProductNameEN string   `json:"productNameEN"`
	DescriptionEN string   `json:"descriptionEN"`
	Categories    []string `json:"categories"`
	Keywords      []string `json:"keywords"`
	SellingPoints []string `json:"sellingPoints"`

	PricingStrategy PricingStrategy `json:"pricingStrategy"`

	Hashtags      []string `json:"hashtags"`
	MarketingTips string   `json:"marketingTips"`

	Weight          WeightAnalysis  `json:"weight"`
	OptionStructure OptionStructure `json:"optionStructure"`
	RiskFlags       RiskFlags       `json:"riskFlags"`
}

// PricingStrategy 美元定价区间建议
type PricingStrategy struct {
	MinUSD         float64 `json:"minUSD"`
	MaxUSD         float64 `json:"maxUSD"`
	Recommendation string  `json:"recommendation"`
}

// WeightAnalysis 重量复核结果
type WeightAnalysis struct {
	OriginalKG  float64 `json:"originalKG"`
	EstimatedKG float64 `json:"estimatedKG"`
	IsAdjusted  bool    `json:"isAdjusted"`
	Reason      string  `json:"reason"`
}

// OptionStructure 选项层级重组结果（Shopee 最多两层变体）
type OptionStructure struct {
	HasOptions  bool     `json:"hasOptions"`
	TierCount   int      `json:"tierCount"` // 0 | 1 | 2
	Tier1Name   *string  `json:"tier1Name"`
	Tier1Values []string `json:"tier1Values"`
	Tier2Name   *string  `json:"tier2Name"`
	Tier2Values []string `json:"tier2Values"`
	Notes       string   `json:"notes"`
}

// RiskFlags 跨境运输风险筛查
type RiskFlags struct {
	HasBattery         bool     `json:"hasBattery"`
	IsLiquidOrGel      bool     `json:"isLiquidOrGel"`
	IsMagnet           bool     `json:"isMagnet"`
	HasSharpObject     bool     `json:"hasSharpObject"`
	OtherRisks         []string `json:"otherRisks"`
	OverallRiskComment string   `json:"overallRiskComment"`
}

// DefaultEnrichment 全量缺省结构
// 上游响应缺哪个字段就用这里的值补位，保证不向外暴露半成品
func DefaultEnrichment() *Enrichment {
	return &Enrichment{
		ProductNameEN: "Translation Error",
		DescriptionEN: "",
		Categories:    []string{"Others"},
		Keywords:      []string{},
		SellingPoints: []string{},
		PricingStrategy: PricingStrategy{
			MinUSD:         0,
			MaxUSD:         0,
			Recommendation: "N/A",
		},
		Hashtags:      []string{},
		MarketingTips: "Please check the raw response in the call log.",
		Weight: WeightAnalysis{
			OriginalKG:  0,
			EstimatedKG: 0,
			IsAdjusted:  false,
			Reason:      "No analysis available",
		},
		OptionStructure: OptionStructure{
			HasOptions:  false,
			TierCount:   0,
			Tier1Name:   nil,
			Tier1Values: []string{},
			Tier2Name:   nil,
			Tier2Values: []string{},
			Notes:       "No option analysis available",
		},
		RiskFlags: RiskFlags{
			HasBattery:         false,
			IsLiquidOrGel:      false,
			IsMagnet:           false,
			HasSharpObject:     false,
			OtherRisks:         []string{},
			OverallRiskComment: "No risk screening available",
		},
	}
}
