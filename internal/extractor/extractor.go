package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"kfinder_dev_v1_202608/internal/model"
)

// ==================== 错误定义 ====================

// ErrUnsupportedSite URL 不属于任何已支持站点（终态错误，直接提示用户）
var ErrUnsupportedSite = errors.New("不支持的站点（目前支持 Coupang/Naver/Gmarket/批发站）")

// ExtractionFailure 单次抓取整体失败（页面结构完全对不上时）
// 字段级的选择器失效不算失败，回退缺省值即可
type ExtractionFailure struct {
	Site    model.SiteID
	Message string
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("抓取失败 [%s]: %s", e.Site, e.Message)
}

// ==================== 分发规则表 ====================

// ExtractFunc 站点抓取函数：输入解析好的页面文档和页面 URL，输出统一结构
type ExtractFunc func(doc *goquery.Document, pageURL string) (*model.RawProduct, error)

// dispatchRule URL 子串 → 抓取函数，按表内顺序取第一个命中
// 新增站点只改这张表，不加控制流
type dispatchRule struct {
	substrings []string
	extract    ExtractFunc
}

var dispatchRules = []dispatchRule{
	{substrings: []string{"coupang.com"}, extract: ExtractCoupang},
	{substrings: []string{"smartstore.naver.com", "brand.naver.com"}, extract: ExtractNaver},
	{substrings: []string{"gmarket.co.kr"}, extract: ExtractGmarket},
	{substrings: []string{"domeggook.com"}, extract: ExtractDomeggook},
	{substrings: []string{"ownerclan.com"}, extract: ExtractOwnerclan},
	{substrings: []string{"specialb2b"}, extract: ExtractSpecialB2B},
}

// Dispatch 根据页面 URL 选择抓取函数，只做字符串分类，不碰 DOM
func Dispatch(pageURL string) (ExtractFunc, error) {
	for _, rule := range dispatchRules {
		for _, sub := range rule.substrings {
			if strings.Contains(pageURL, sub) {
				return rule.extract, nil
			}
		}
	}
	return nil, ErrUnsupportedSite
}

// ==================== 共享抓取辅助 ====================

// firstText 按顺序尝试多个选择器，返回第一个非空文本
// 同一个字段在不同页面模板版本里选择器不一样，挨个试
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// imgSrc 读取图片地址，data-src 优先（懒加载场景 src 是占位图）
func imgSrc(s *goquery.Selection) string {
	if src, ok := s.Attr("data-src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	src, _ := s.Attr("src")
	return strings.TrimSpace(src)
}

// captureDate 抓取日期（只到天）
func captureDate() string {
	return time.Now().Format("2006-01-02")
}

// positionalOptionName 页面没给组名时的兜底名："옵션1"、"옵션2"…
func positionalOptionName(idx int) string {
	return fmt.Sprintf("옵션%d", idx+1)
}

// soldOutRe 文案里的售罄标记
var soldOutRe = regexp.MustCompile(`품절`)

// optionItem 构造一个选项条目：售罄 = disabled class 或 문안 중 품절, 两个信号取或
func optionItem(s *goquery.Selection, label, priceText string) (model.OptionItem, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return model.OptionItem{}, false
	}
	return model.OptionItem{
		Label:     label,
		PriceText: strings.TrimSpace(priceText),
		SoldOut:   s.HasClass("disabled") || soldOutRe.MatchString(s.Text()),
	}, true
}

// appendGroup 仅当组内至少有一个有效条目时才保留该组
func appendGroup(groups []model.OptionGroup, g model.OptionGroup) []model.OptionGroup {
	if len(g.Items) == 0 {
		return groups
	}
	return append(groups, g)
}

// ==================== 认证信息表扫描 ====================

// certRules 标签文本 → 输出字段，未命中的键值对忽略
var certRules = []struct {
	re     *regexp.Regexp
	assign func(p *model.RawProduct, value string)
}{
	{regexp.MustCompile(`(?i)KC.*전기용품|전기용품.*KC`), func(p *model.RawProduct, v string) { p.CertElectric = v }},
	{regexp.MustCompile(`(?i)KC.*어린이|어린이.*KC`), func(p *model.RawProduct, v string) { p.CertChildren = v }},
	{regexp.MustCompile(`(?i)KC.*생활용품|생활용품.*KC`), func(p *model.RawProduct, v string) { p.CertHousehold = v }},
	{regexp.MustCompile(`(?i)방송통신|전파인증|KCC`), func(p *model.RawProduct, v string) { p.CertBroadcast = v }},
	{regexp.MustCompile(`제조자|제조사|수입자`), func(p *model.RawProduct, v string) { p.Manufacturer = v }},
	{regexp.MustCompile(`제조국|원산지`), func(p *model.RawProduct, v string) { p.OriginDetail = v }},
}

// scanCertTable 扫描认证信息表：行内单元格按 (标签, 值) 成对读取
func scanCertTable(doc *goquery.Document, rowSelector string, p *model.RawProduct) {
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		for i := 0; i+1 < cells.Length(); i += 2 {
			key := strings.TrimSpace(cells.Eq(i).Text())
			value := strings.TrimSpace(cells.Eq(i + 1).Text())
			if key == "" || value == "" {
				continue
			}
			for _, rule := range certRules {
				if rule.re.MatchString(key) {
					rule.assign(p, value)
					break
				}
			}
		}
	})
}

// hostAllowed 图片主机白名单过滤，挡掉页面上与商品无关的装饰图
func hostAllowed(url string, allowHosts ...string) bool {
	if len(allowHosts) == 0 {
		return true
	}
	for _, h := range allowHosts {
		if strings.Contains(url, h) {
			return true
		}
	}
	return false
}
