package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"kfinder_dev_v1_202608/internal/model"
)

// ==================== 批发站（도매꾹 / 오너클랜 / 스페셜B2B） ====================
// 三个批发站的页面都是传统表格布局，结构变化小但标记不统一，
// 公共流程收敛到 extractWholesale，差异只剩选择器和编号规则。

// wholesaleProfile 批发站差异配置
type wholesaleProfile struct {
	site           model.SiteID
	codeFromURL    func(pageURL string) string
	titleSelectors []string
	priceSelectors []string
	imageSelectors string
	detailSelector string
	imageHosts     []string
	shippingFee    string
	maxDetail      int
}

var domeggookPathRe = regexp.MustCompile(`domeggook\.com/(\d+)`)

var wholesaleProfiles = map[model.SiteID]wholesaleProfile{
	model.SiteDomeggook: {
		site: model.SiteDomeggook,
		codeFromURL: func(pageURL string) string {
			if m := domeggookPathRe.FindStringSubmatch(pageURL); m != nil {
				return m[1]
			}
			return ""
		},
		titleSelectors: []string{"#lInfoItemTitle", ".itemTitle h1"},
		priceSelectors: []string{"#lItemPrice", ".priceBig", ".itemPrice"},
		imageSelectors: "#lThumbImg img, .thumbList img",
		detailSelector: "#lInfoBody img, .detailView img",
		imageHosts:     []string{"domeggook.com"},
		shippingFee:    "2500",
		maxDetail:      20,
	},
	model.SiteOwnerclan: {
		site: model.SiteOwnerclan,
		codeFromURL: func(pageURL string) string {
			if u, err := url.Parse(pageURL); err == nil {
				return u.Query().Get("selfcode")
			}
			return ""
		},
		titleSelectors: []string{".item-view-title", ".goods_name", "h2.name"},
		priceSelectors: []string{".item-view-price", ".price", "#item_price"},
		imageSelectors: ".item-view-thumb img, .goods_thumbs img",
		detailSelector: ".item-view-detail img, #detail_view img",
		imageHosts:     []string{"ownerclan.com"},
		shippingFee:    "3000",
		maxDetail:      20,
	},
	model.SiteSpecialB2B: {
		site: model.SiteSpecialB2B,
		codeFromURL: func(pageURL string) string {
			if u, err := url.Parse(pageURL); err == nil {
				if code := u.Query().Get("goodsno"); code != "" {
					return code
				}
				return u.Query().Get("no")
			}
			return ""
		},
		titleSelectors: []string{".goods-header h2", ".name", ".goods_name"},
		priceSelectors: []string{".goods-price strong", ".price", "#price"},
		imageSelectors: ".goods-thumbs img, .thumb img",
		detailSelector: "#goods-detail img, .detail img",
		imageHosts:     nil, // 自营图床域名不固定，不过滤
		shippingFee:    "3000",
		maxDetail:      20,
	},
}

// ExtractDomeggook 도매꾹
func ExtractDomeggook(doc *goquery.Document, pageURL string) (*model.RawProduct, error) {
	return extractWholesale(doc, pageURL, wholesaleProfiles[model.SiteDomeggook])
}

// ExtractOwnerclan 오너클랜
func ExtractOwnerclan(doc *goquery.Document, pageURL string) (*model.RawProduct, error) {
	return extractWholesale(doc, pageURL, wholesaleProfiles[model.SiteOwnerclan])
}

// ExtractSpecialB2B 스페셜B2B
func ExtractSpecialB2B(doc *goquery.Document, pageURL string) (*model.RawProduct, error) {
	return extractWholesale(doc, pageURL, wholesaleProfiles[model.SiteSpecialB2B])
}

func extractWholesale(doc *goquery.Document, pageURL string, prof wholesaleProfile) (*model.RawProduct, error) {
	p := &model.RawProduct{
		SourceURL:   pageURL,
		Site:        prof.site,
		CaptureDate: captureDate(),
		SaleUnit:    model.DefaultSaleUnit,
		ShippingFee: prof.shippingFee,
	}

	p.ProductCode = prof.codeFromURL(pageURL)

	p.Title = firstText(doc, prof.titleSelectors...)
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	p.WeightKG = InferWeightKG(p.Title)
	p.Brand = model.DefaultBrand // 批发站基本没有品牌栏位

	p.PurchasePrice = FormatKRW(ParsePriceKRW(firstText(doc, prof.priceSelectors...)))

	var thumbs []string
	doc.Find(prof.imageSelectors).Each(func(_ int, s *goquery.Selection) {
		src := UpgradeImageURL(imgSrc(s), prof.site)
		if src != "" && hostAllowed(src, prof.imageHosts...) {
			thumbs = append(thumbs, src)
		}
	})
	ogImage := UpgradeImageURL(doc.Find(`meta[property="og:image"]`).AttrOr("content", ""), prof.site)
	p.Images = DedupImages(ogImage, thumbs)
	if len(p.Images) > 0 {
		p.MainImage = p.Images[0]
	}

	var details []string
	doc.Find(prof.detailSelector).Each(func(_ int, s *goquery.Selection) {
		if src := UpgradeImageURL(imgSrc(s), prof.site); src != "" {
			details = append(details, src)
		}
	})
	p.DetailImages = DedupImages("", details)
	if len(p.DetailImages) > prof.maxDetail {
		p.DetailImages = p.DetailImages[:prof.maxDetail]
	}

	// 批发站的选项统一是下拉框
	doc.Find("select[name*=opt], .option select").Each(func(idx int, sel *goquery.Selection) {
		g := model.OptionGroup{Name: sel.AttrOr("title", "")}
		if g.Name == "" {
			g.Name = positionalOptionName(idx)
		}
		sel.Find("option").Each(func(i int, opt *goquery.Selection) {
			if i == 0 {
				return
			}
			if item, ok := optionItem(opt, opt.Text(), ""); ok {
				g.Items = append(g.Items, item)
			}
		})
		p.Options = appendGroup(p.Options, g)
	})

	// 도매꾹的商品信息表里也有认证字段
	if prof.site == model.SiteDomeggook {
		scanCertTable(doc, "#lInfoView table tr, .itemInfoTable tr", p)
	}

	if p.Title == "" && p.ProductCode == "" && len(p.Images) == 0 {
		return nil, &ExtractionFailure{Site: prof.site, Message: "页面结构不匹配，未提取到任何字段"}
	}
	return p, nil
}
