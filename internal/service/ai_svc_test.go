package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"kfinder_dev_v1_202608/internal/model"
)

func newTestAIService(serverURL string) *AIService {
	return NewAIService(&AIConfig{
		APIKey:   "test-key",
		Endpoint: serverURL,
	})
}

// candidateBody 构造标准 REST 形态的成功响应
func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				},
			},
		},
	})
	return string(b)
}

func TestBuildPrompt(t *testing.T) {
	p := &model.RawProduct{
		Title:         "스테인리스 텀블러 500ml",
		Brand:         "스탠리",
		WeightKG:      "0.50",
		PurchasePrice: "23,900원",
		Manufacturer:  "스탠리 주식회사",
		OriginDetail:  "중국",
		Options: []model.OptionGroup{
			{Name: "색상", Items: []model.OptionItem{{Label: "블랙"}}},
		},
	}

	prompt := BuildPrompt(p)

	for _, want := range []string{
		"Name (Korean): 스테인리스 텀블러 500ml",
		"Brand: 스탠리",
		"Weight: 0.50 kg",
		"Price: 23,900원",
		"Manufacturer: 스탠리 주식회사",
		"Origin: 중국",
		`"productNameEN"`,
		`"riskFlags"`,
		"Respond with valid JSON only",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("提示词缺少片段: %s", want)
		}
	}

	if prompt != BuildPrompt(p) {
		t.Error("同样输入应产出同样的提示词")
	}
}

func TestBuildPrompt_Defaults(t *testing.T) {
	prompt := BuildPrompt(&model.RawProduct{Title: "무명 상품"})

	if !strings.Contains(prompt, "Brand: "+model.DefaultBrand) {
		t.Error("空品牌应回落到缺省品牌")
	}
	if !strings.Contains(prompt, "Weight: "+model.DefaultWeightKG+" kg") {
		t.Error("空重量应回落到缺省重量")
	}
	if !strings.Contains(prompt, "Options: []") {
		t.Error("无选项时应序列化为空数组")
	}
}

func TestAnalyze_Success(t *testing.T) {
	enrichment := `{
		"productNameEN": "Stainless Tumbler 500ml",
		"descriptionEN": "A great tumbler.",
		"categories": ["Home & Living"],
		"keywords": ["tumbler", "stainless"],
		"sellingPoints": ["Durable"],
		"pricingStrategy": {"minUSD": 10, "maxUSD": 15, "recommendation": "mid range"},
		"hashtags": ["#tumbler"],
		"marketingTips": "Bundle with straws",
		"weight": {"originalKG": 0.5, "estimatedKG": 0.5, "isAdjusted": false, "reason": ""},
		"optionStructure": {"hasOptions": true, "tierCount": 1, "tier1Name": "Color", "tier1Values": ["Black"], "tier2Name": null, "tier2Values": [], "notes": ""},
		"riskFlags": {"hasBattery": false, "isLiquidOrGel": false, "isMagnet": false, "hasSharpObject": false, "otherRisks": [], "overallRiskComment": "none"}
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("请求方法错误: %s", r.Method)
		}
		if !strings.Contains(r.URL.RawQuery, "key=test-key") {
			t.Error("请求未携带 API Key")
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("请求体解析失败: %v", err)
		}
		if req.GenerationConfig["responseMimeType"] != "application/json" {
			t.Error("generationConfig 缺少 responseMimeType")
		}
		w.Write([]byte(candidateBody(enrichment)))
	}))
	defer server.Close()

	svc := newTestAIService(server.URL)
	result, err := svc.Analyze(context.Background(), &model.RawProduct{Title: "텀블러"})
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}

	if result.ProductNameEN != "Stainless Tumbler 500ml" {
		t.Errorf("产品名错误: %s", result.ProductNameEN)
	}
	if result.PricingStrategy.MinUSD != 10 {
		t.Errorf("定价下限错误: %v", result.PricingStrategy.MinUSD)
	}
	if result.OptionStructure.Tier1Name == nil || *result.OptionStructure.Tier1Name != "Color" {
		t.Error("tier1Name 丢失")
	}
	if result.OptionStructure.Tier2Name != nil {
		t.Error("显式 null 的 tier2Name 应保持为 nil")
	}
}

func TestAnalyze_CodeFencedResponse(t *testing.T) {
	fenced := "```json\n{\"productNameEN\": \"Fenced Name\"}\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateBody(fenced)))
	}))
	defer server.Close()

	result, err := newTestAIService(server.URL).Analyze(context.Background(), &model.RawProduct{Title: "t"})
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if result.ProductNameEN != "Fenced Name" {
		t.Errorf("代码围栏未剥离: %s", result.ProductNameEN)
	}
	// 模型漏掉的字段保持缺省值
	if len(result.Categories) != 1 || result.Categories[0] != "Others" {
		t.Errorf("缺失字段未保持缺省值: %v", result.Categories)
	}
}

func TestAnalyze_PartialFieldsMergeOntoDefaults(t *testing.T) {
	partial := `{"productNameEN": "Partial", "hashtags": null, "riskFlags": {"otherRisks": null}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateBody(partial)))
	}))
	defer server.Close()

	result, err := newTestAIService(server.URL).Analyze(context.Background(), &model.RawProduct{Title: "t"})
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if result.Hashtags == nil {
		t.Error("显式 null 的数组字段应修复为空数组")
	}
	if result.RiskFlags.OtherRisks == nil {
		t.Error("嵌套的 null 数组字段应修复为空数组")
	}
	if result.DescriptionEN != "" {
		t.Errorf("缺失的描述应保持缺省值: %s", result.DescriptionEN)
	}
}

func TestAnalyze_MalformedJSONFallsBack(t *testing.T) {
	garbage := "I'm sorry, I cannot produce JSON today. " + strings.Repeat("x", 400)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateBody(garbage)))
	}))
	defer server.Close()

	result, err := newTestAIService(server.URL).Analyze(context.Background(), &model.RawProduct{Title: "t"})
	if err != nil {
		t.Fatalf("解析失败不应作为错误: %v", err)
	}
	if result.ProductNameEN != "Translation Error" {
		t.Errorf("降级结构产品名错误: %s", result.ProductNameEN)
	}
	if len(result.DescriptionEN) != 300 {
		t.Errorf("降级描述应截断到 300 字符, 实际 %d", len(result.DescriptionEN))
	}
	if !strings.HasPrefix(garbage, result.DescriptionEN) {
		t.Error("降级描述应是原文前缀")
	}
}

func TestAnalyze_MultibyteFallbackKeepsValidUTF8(t *testing.T) {
	garbage := "a" + strings.Repeat("한", 400)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateBody(garbage)))
	}))
	defer server.Close()

	result, err := newTestAIService(server.URL).Analyze(context.Background(), &model.RawProduct{Title: "t"})
	if err != nil {
		t.Fatalf("解析失败不应作为错误: %v", err)
	}
	if !utf8.ValidString(result.DescriptionEN) {
		t.Error("降级描述不应出现非法 UTF-8")
	}
	if got := utf8.RuneCountInString(result.DescriptionEN); got != 300 {
		t.Errorf("降级描述应截断到 300 字符, 实际 %d", got)
	}
	if !strings.HasPrefix(garbage, result.DescriptionEN) {
		t.Error("降级描述应是原文前缀")
	}
}

func TestAnalyze_FlatTextShape(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"text": `{"productNameEN": "Flat Shape"}`})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	result, err := newTestAIService(server.URL).Analyze(context.Background(), &model.RawProduct{Title: "t"})
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if result.ProductNameEN != "Flat Shape" {
		t.Errorf("扁平 text 形态未识别: %s", result.ProductNameEN)
	}
}

func TestAnalyze_ContentBlocked(t *testing.T) {
	blocked, _ := json.Marshal(map[string]interface{}{
		"promptFeedback": map[string]string{"blockReason": "SAFETY"},
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(blocked)
	}))
	defer server.Close()

	_, err := newTestAIService(server.URL).Analyze(context.Background(), &model.RawProduct{Title: "t"})
	var be *ContentBlockedError
	if !errors.As(err, &be) {
		t.Fatalf("应返回安全拦截错误, 实际: %v", err)
	}
	if be.Reason != "SAFETY" {
		t.Errorf("拦截原因错误: %s", be.Reason)
	}
}

func TestAnalyze_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"鉴权失败", 401, `{"error": {"message": "API key not valid"}}`, "API key not valid"},
		{"限流", 429, `{"error": {"message": "Resource exhausted"}}`, "Resource exhausted"},
		{"服务端错误", 500, "internal failure", "internal failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestAIService(server.URL).Analyze(context.Background(), &model.RawProduct{Title: "t"})
			var ue *UpstreamHTTPError
			if !errors.As(err, &ue) {
				t.Fatalf("应返回上游错误, 实际: %v", err)
			}
			if ue.Status != tt.status {
				t.Errorf("状态码错误: %d", ue.Status)
			}
			if ue.Message != tt.wantMsg {
				t.Errorf("错误信息错误: %s", ue.Message)
			}
		})
	}
}

func TestAnalyze_MissingCredential(t *testing.T) {
	svc := NewAIService(&AIConfig{})
	_, err := svc.Analyze(context.Background(), &model.RawProduct{Title: "t"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("应返回缺少 Key 错误, 实际: %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json 围栏", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"裸围栏", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"无围栏", `{"a":1}`, `{"a":1}`},
		{"前后空白", "  \n```json\n{\"a\":1}\n```\n  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.in); got != tt.want {
				t.Errorf("围栏剥离错误: %q", got)
			}
		})
	}
}

func TestTestCredential(t *testing.T) {
	t.Run("有效 Key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req geminiRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.GenerationConfig["maxOutputTokens"] != float64(100) {
				t.Error("探测调用应限制输出 token 数")
			}
			w.Write([]byte(candidateBody("ok")))
		}))
		defer server.Close()

		result := newTestAIService(server.URL).TestCredential(context.Background(), "good-key")
		if !result.OK || result.Status != 200 {
			t.Errorf("有效 Key 校验结果错误: %+v", result)
		}
	})

	t.Run("无效 Key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(400)
			w.Write([]byte(`{"error": {"message": "API key not valid"}}`))
		}))
		defer server.Close()

		result := newTestAIService(server.URL).TestCredential(context.Background(), "bad-key")
		if result.OK || result.Status != 400 || result.ErrorMessage != "API key not valid" {
			t.Errorf("无效 Key 校验结果错误: %+v", result)
		}
	})

	t.Run("空 Key", func(t *testing.T) {
		result := newTestAIService("http://unused").TestCredential(context.Background(), "  ")
		if result.OK || result.Status != 0 {
			t.Errorf("空 Key 校验结果错误: %+v", result)
		}
	})

	t.Run("网络失败", func(t *testing.T) {
		result := newTestAIService("http://127.0.0.1:1").TestCredential(context.Background(), "key")
		if result.OK || result.Status != 0 || result.ErrorMessage == "" {
			t.Errorf("网络失败校验结果错误: %+v", result)
		}
	})
}
