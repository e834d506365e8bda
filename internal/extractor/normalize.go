package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"kfinder_dev_v1_202608/internal/model"
)

// ==================== 重量推断 ====================

// weightPattern 单位匹配规则，按优先级排列
// reject 用于排除紧跟的字母序列（RE2 不支持 lookahead，匹配后手工校验）：
//   - g 不能匹配 "gram" 里的 g（kg 规则已消费 킬로그램/kg）
//   - l 不能匹配 "liter" 里的 l，也不会命中 ml（前一位是 m 时数字规则接不上）
type weightPattern struct {
	re      *regexp.Regexp
	reject  string
	divisor float64
}

var weightPatterns = []weightPattern{
	{re: regexp.MustCompile(`([0-9.]+)\s*(kg|킬로그램)`), divisor: 1},
	{re: regexp.MustCompile(`([0-9.]+)\s*(g|그램)`), reject: "ram", divisor: 1000},
	{re: regexp.MustCompile(`([0-9.]+)\s*(ml|밀리리터)`), divisor: 1000},
	{re: regexp.MustCompile(`([0-9.]+)\s*(l|리터)`), reject: "iter", divisor: 1},
}

// InferWeightKG 从商品名（可叠加描述文本）推断重量，单位 kg
// 没有任何单位信号时返回 "0.50"，下游运费估算需要一个非零重量，
// 宁可保守给 0.5kg 也不能让 0 重量把运费算成 0。升（l）按体积≈质量直接当 kg 用。
func InferWeightKG(title string, description ...string) string {
	text := strings.ToLower(title)
	for _, d := range description {
		text += " " + strings.ToLower(d)
	}

	for _, p := range weightPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			// loc[5] 是单位子匹配的结束位置，检查后续字符排除误命中
			if p.reject != "" && strings.HasPrefix(text[loc[5]:], p.reject) {
				continue
			}
			value, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
			if err != nil {
				continue
			}
			return fmt.Sprintf("%.2f", value/p.divisor)
		}
	}

	return model.DefaultWeightKG
}

// ==================== 图片 URL 处理 ====================

// 各站点缩略图 → 高清图替换规则
var imageUpgradeRules = map[model.SiteID][][2]string{
	model.SiteCoupang: {
		{"/thumbnail/", "/492x492ex/"},
		{"/48x48ex/", "/492x492ex/"},
		{"/70x70ex/", "/492x492ex/"},
		{"/96x96ex/", "/492x492ex/"},
	},
	model.SiteNaverSmart: {
		{"type=f40", "type=f640"},
		{"type=f80", "type=f640"},
		{"type=f200", "type=f640"},
	},
	model.SiteNaverBrand: {
		{"type=f40", "type=f640"},
		{"type=f80", "type=f640"},
		{"type=f200", "type=f640"},
	},
	model.SiteGmarket: {
		{"/goods_img2/", "/goods_img/"},
		{"_S.jpg", "_B.jpg"},
	},
}

// UpgradeImageURL 把已知的低分辨率缩略图标记替换成该站点的最大尺寸标记
// 同时规整协议：// 开头补 https:，data: 协议视为无效直接丢弃（返回空串）
func UpgradeImageURL(rawURL string, site model.SiteID) string {
	u := strings.TrimSpace(rawURL)
	if u == "" || strings.HasPrefix(u, "data:") {
		return ""
	}
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}

	for _, rule := range imageUpgradeRules[site] {
		u = strings.ReplaceAll(u, rule[0], rule[1])
	}
	return u
}

// DedupImages 候选图片去重：去掉 query string 后相同的视为重复，保持首见顺序
// mainImage 非空且有效时固定放到第 0 位
func DedupImages(mainImage string, candidates []string) []string {
	result := make([]string, 0, len(candidates)+1)
	seen := make(map[string]bool)

	accept := func(u string) {
		if u == "" || strings.HasPrefix(u, "data:") {
			return
		}
		base := strings.SplitN(u, "?", 2)[0]
		if seen[base] {
			return
		}
		seen[base] = true
		result = append(result, u)
	}

	accept(mainImage)
	for _, c := range candidates {
		accept(c)
	}
	return result
}

// ==================== 价格处理 ====================

var nonDigitRe = regexp.MustCompile(`[^\d]`)

// ParsePriceKRW 去掉所有非数字字符后解析为整数，失败返回 0
func ParsePriceKRW(text string) int64 {
	digits := nonDigitRe.ReplaceAllString(text, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var krwPrinter = message.NewPrinter(language.Korean)

// FormatKRW 带千分位的韩元展示格式，非正数统一回退 "0원"
func FormatKRW(n int64) string {
	if n <= 0 {
		return model.DefaultPriceKRW
	}
	return krwPrinter.Sprintf("%d원", n)
}
