package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"kfinder_dev_v1_202608/internal/model"
)

// ==================== 配置 ====================

// AIConfig AI 分析服务配置
type AIConfig struct {
	APIKey   string
	Model    string
	Endpoint string // 缺省指向官方 generativelanguage 网关
	Timeout  time.Duration
}

// ==================== 错误定义 ====================

// ErrMissingCredential 未配置 API Key，调用前直接拦截
var ErrMissingCredential = errors.New("Gemini API Key 未配置")

// TransportError 网络层失败（DNS/超时/连接重置等）
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("请求失败: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamHTTPError 上游返回非 2xx
// 保留状态码给上层区分鉴权失败 / 限流 / 服务端错误，这里一律不重试
type UpstreamHTTPError struct {
	Status  int
	Message string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("Gemini API 错误 [%d]: %s", e.Status, e.Message)
}

// ContentBlockedError 响应被安全策略拦截且没有任何可用文本
type ContentBlockedError struct {
	Reason string
}

func (e *ContentBlockedError) Error() string {
	return fmt.Sprintf("Gemini 响应被安全策略拦截: %s", e.Reason)
}

// ==================== 服务 ====================

// AIService Shopee 上架分析服务
// 一次分析 = 构建提示词 → 单次 HTTP 调用 → 容错提取文本 → 解析并补齐缺省值
type AIService struct {
	Config *AIConfig
	client *http.Client
	log    *logrus.Entry
}

// NewAIService 创建 AI 分析服务
func NewAIService(cfg *AIConfig) *AIService {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://generativelanguage.googleapis.com/v1/models"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &AIService{
		Config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logrus.WithField("service", "ai"),
	}
}

// ==================== 提示词构建 ====================

// BuildPrompt 把抓取结果的固定字段子集序列化进 Shopee 分析提示词
// 纯函数：同样的输入产出同样的提示词
func BuildPrompt(p *model.RawProduct) string {
	brand := p.Brand
	if brand == "" {
		brand = model.DefaultBrand
	}
	weight := p.WeightKG
	if weight == "" {
		weight = model.DefaultWeightKG
	}

	optionsJSON := []byte("[]")
	if len(p.Options) > 0 {
		if b, err := json.MarshalIndent(p.Options, "", "  "); err == nil {
			optionsJSON = b
		}
	}

	return fmt.Sprintf(`You are a Shopee global e-commerce specialist. Analyze the following Korean product information and provide optimized data for Shopee international listing.

**Product Information:**
- Name (Korean): %s
- Brand: %s
- Weight: %s kg
- Price: %s
- Manufacturer: %s
- Origin: %s
- Options: %s

**Task:**
1. Translate the product name into English (SEO-optimized, under 120 characters)
2. Generate a compelling English product description (under 300 words, highlight key features and benefits)
3. Suggest 3 most suitable Shopee categories (in English)
4. Extract 5-8 relevant keywords for search optimization
5. Identify 3 key selling points (in English)
6. Suggest pricing strategy (competitive price range in USD, considering $1 = 1,300 KRW)
7. Recommend hashtags for Shopee social selling
8. Analyze the weight information:
   - If the original KG value seems missing or obviously wrong, estimate a realistic weight in KG based on the product type and description.
   - Explain briefly why you chose that weight.
9. Analyze the raw option data and convert it into a Shopee-style variation structure:
   - Detect whether the product has 0, 1, or 2 option tiers (e.g., Color / Size).
   - For each tier, suggest the tier name (in English) and a list of option values.
   - Summarize any price differences and sold-out options.
10. Perform a basic risk screening:
    - Flag if the product is likely to contain liquid/gel, built-in battery, strong magnet, sharp blade, or other shipping-restricted materials.
    - Return short warning messages for any detected risks.

**Output Format (JSON only, no markdown):**
{
  "productNameEN": "English product name",
  "descriptionEN": "Detailed English description",
  "categories": ["Category 1", "Category 2", "Category 3"],
  "keywords": ["keyword1", "keyword2", "..."],
  "sellingPoints": ["Point 1", "Point 2", "Point 3"],
  "pricingStrategy": {
    "minUSD": 0,
    "maxUSD": 0,
    "recommendation": "pricing strategy explanation"
  },
  "hashtags": ["#tag1", "#tag2", "..."],
  "marketingTips": "Brief marketing advice for this product",
  "weight": {
    "originalKG": 0,
    "estimatedKG": 0,
    "isAdjusted": false,
    "reason": ""
  },
  "optionStructure": {
    "hasOptions": false,
    "tierCount": 0,
    "tier1Name": null,
    "tier1Values": [],
    "tier2Name": null,
    "tier2Values": [],
    "notes": ""
  },
  "riskFlags": {
    "hasBattery": false,
    "isLiquidOrGel": false,
    "isMagnet": false,
    "hasSharpObject": false,
    "otherRisks": [],
    "overallRiskComment": ""
  }
}

Respond with valid JSON only. Do not include any markdown formatting or code blocks.`,
		p.Title, brand, weight, p.PurchasePrice, p.Manufacturer, p.OriginDetail, string(optionsJSON))
}

// ==================== 分析调用 ====================

// geminiRequest generateContent 请求体
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// Analyze 对一条抓取结果做 Shopee 上架分析，使用配置里的 Key
func (s *AIService) Analyze(ctx context.Context, p *model.RawProduct) (*model.Enrichment, error) {
	return s.AnalyzeWithKey(ctx, s.Config.APIKey, p)
}

// AnalyzeWithKey 同 Analyze，但使用指定 Key（运行时从设置表下发的场景）
// 除 4 类边界错误（缺 Key / 网络 / 非 2xx / 安全拦截）外总能给出完整结构：
// 上游 JSON 再烂也会降级成缺省结构，不把解析失败抛给调用方
func (s *AIService) AnalyzeWithKey(ctx context.Context, apiKey string, p *model.RawProduct) (*model.Enrichment, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	s.log.WithField("title", p.Title).Info("开始 AI 分析")

	body, err := s.callGenerate(ctx, apiKey, BuildPrompt(p), map[string]interface{}{
		"temperature":      0.7,
		"topK":             40,
		"topP":             0.95,
		"maxOutputTokens":  2048,
		"responseMimeType": "application/json",
	})
	if err != nil {
		return nil, err
	}

	text, err := extractResponseText(body)
	if err != nil {
		return nil, err
	}

	return s.parseEnrichment(text), nil
}

// callGenerate 发起一次 generateContent 调用，返回原始响应体
func (s *AIService) callGenerate(ctx context.Context, apiKey, prompt string, genCfg map[string]interface{}) ([]byte, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.Config.Endpoint, s.Config.Model, apiKey)

	reqBody, _ := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: genCfg,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamHTTPError{
			Status:  resp.StatusCode,
			Message: upstreamErrorMessage(respBody),
		}
	}

	return respBody, nil
}

// upstreamErrorMessage 提取错误响应里内嵌的 error.message，解析不了就用原文
func upstreamErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}

// ==================== 响应文本提取 ====================

// geminiResponse 兼容三种已知响应形态：
//  1. SDK 风格的扁平 text 字段
//  2. REST 标准 candidates[].content.parts[].text（content 偶尔是数组）
//  3. promptFeedback.blockReason 安全拦截元数据
type geminiResponse struct {
	Text       string `json:"text"`
	Candidates []struct {
		Content json.RawMessage `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiResponseContent struct {
	Parts []geminiPart `json:"parts"`
}

// extractResponseText 从上游响应中尽力提取文本
// 只有安全拦截才报错；三种形态都取不到文本时把整个响应原样返回，
// 让后面的解析阶段兜底降级，而不是在这里失败
func extractResponseText(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return string(body), nil
	}

	if t := strings.TrimSpace(resp.Text); t != "" {
		return t, nil
	}

	var parts []string
	for _, c := range resp.Candidates {
		parts = append(parts, collectContentText(c.Content)...)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), nil
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &ContentBlockedError{Reason: resp.PromptFeedback.BlockReason}
	}

	return string(body), nil
}

// collectContentText content 既可能是对象也可能是对象数组，递归展开
func collectContentText(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var parts []string
		for _, item := range list {
			parts = append(parts, collectContentText(item)...)
		}
		return parts
	}

	var content geminiResponseContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil
	}
	var parts []string
	for _, p := range content.Parts {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return parts
}

// ==================== 解析与降级 ====================

const parseFallbackPrefixLen = 300

var requiredEnrichmentFields = []string{"productNameEN", "descriptionEN", "categories", "keywords"}

// parseEnrichment 解析生成文本并补齐缺省值
// 解析成功：逐字段盖在缺省结构上，模型漏掉的字段保持缺省值；
// 解析失败：整体降级，把原文前 300 字符塞进 DescriptionEN，保证结构始终可渲染
func (s *AIService) parseEnrichment(text string) *model.Enrichment {
	cleaned := stripCodeFence(text)

	result := model.DefaultEnrichment()
	if err := json.Unmarshal([]byte(cleaned), result); err != nil {
		s.log.WithError(err).Warn("响应 JSON 解析失败，降级为缺省结构")
		fallback := model.DefaultEnrichment()
		fallback.DescriptionEN = truncate(text, parseFallbackPrefixLen)
		return fallback
	}

	// Unmarshal 会把显式 null 的数组字段打成 nil，补回缺省空数组
	repairNilSlices(result)

	// 必填字段缺失只告警，不作为错误
	var probe map[string]interface{}
	_ = json.Unmarshal([]byte(cleaned), &probe)
	for _, field := range requiredEnrichmentFields {
		if _, ok := probe[field]; !ok {
			s.log.WithField("field", field).Warn("响应 JSON 缺少必填字段")
		}
	}

	return result
}

// stripCodeFence 去掉可选的 Markdown 代码围栏（```json ... ``` 或 ``` ... ```）
func stripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(t, "```json"):
		t = strings.TrimPrefix(t, "```json")
	case strings.HasPrefix(t, "```"):
		t = strings.TrimPrefix(t, "```")
	default:
		return t
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

func repairNilSlices(e *model.Enrichment) {
	if e.Categories == nil {
		e.Categories = []string{}
	}
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	if e.SellingPoints == nil {
		e.SellingPoints = []string{}
	}
	if e.Hashtags == nil {
		e.Hashtags = []string{}
	}
	if e.OptionStructure.Tier1Values == nil {
		e.OptionStructure.Tier1Values = []string{}
	}
	if e.OptionStructure.Tier2Values == nil {
		e.OptionStructure.Tier2Values = []string{}
	}
	if e.RiskFlags.OtherRisks == nil {
		e.RiskFlags.OtherRisks = []string{}
	}
}

// truncate 按字符数截断，不能在多字节字符中间切开
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ==================== API Key 校验 ====================

// CredentialTestResult Key 校验结果
// Status 为 0 表示请求根本没发出去（网络/构造失败）
type CredentialTestResult struct {
	OK           bool   `json:"ok"`
	Status       int    `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// TestCredential 低成本探测调用，校验新输入的 Key
// 任何结局（包括网络失败）都折叠进结果结构，绝不返回 error
func (s *AIService) TestCredential(ctx context.Context, apiKey string) CredentialTestResult {
	if strings.TrimSpace(apiKey) == "" {
		return CredentialTestResult{OK: false, Status: 0, ErrorMessage: ErrMissingCredential.Error()}
	}

	_, err := s.callGenerate(ctx, apiKey, "Hello, this is a test.", map[string]interface{}{
		"temperature":      0.7,
		"maxOutputTokens":  100,
		"responseMimeType": "application/json",
	})

	var upstream *UpstreamHTTPError
	switch {
	case err == nil:
		return CredentialTestResult{OK: true, Status: http.StatusOK}
	case errors.As(err, &upstream):
		return CredentialTestResult{OK: false, Status: upstream.Status, ErrorMessage: upstream.Message}
	default:
		return CredentialTestResult{OK: false, Status: 0, ErrorMessage: err.Error()}
	}
}
