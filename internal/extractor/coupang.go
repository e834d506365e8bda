package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"kfinder_dev_v1_202608/internal/model"
)

// ==================== Coupang ====================

var coupangCodeRe = regexp.MustCompile(`쿠팡상품번호:\s*(\d+)`)

// ExtractCoupang 抓取 Coupang 商品页
// 选择器同时覆盖新旧两套页面模板（twc- 前缀的新版和 prod- 前缀的旧版）
func ExtractCoupang(doc *goquery.Document, pageURL string) (*model.RawProduct, error) {
	p := &model.RawProduct{
		SourceURL:   pageURL,
		Site:        model.SiteCoupang,
		CaptureDate: captureDate(),
		SaleUnit:    model.DefaultSaleUnit,
		ShippingFee: "3000",
	}

	// 商品编号：优先 URL 的 itemId 参数，取不到再扫描描述区的 "쿠팡상품번호:" 文案
	if u, err := url.Parse(pageURL); err == nil {
		p.ProductCode = u.Query().Get("itemId")
	}
	if p.ProductCode == "" {
		doc.Find(".product-description li, .prod-description li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if m := coupangCodeRe.FindStringSubmatch(s.Text()); m != nil {
				p.ProductCode = m[1]
				return false
			}
			return true
		})
	}

	// 标题
	p.Title = firstText(doc,
		"h1.product-title span.twc-font-bold",
		"h2.prod-buy-header__title",
		`h2[data-test="productTitle"]`,
	)

	// 重量从标题推断
	p.WeightKG = InferWeightKG(p.Title)

	// 品牌
	p.Brand = firstText(doc, ".prod-brand-name a", `[class*="brand"]`)
	if p.Brand == "" {
		p.Brand = model.DefaultBrand
	}

	// 价格
	priceText := firstText(doc,
		`.simplify-atf-price .twc-font-bold[class*="28px"]`,
		".sales-price-amount",
		".final-price-amount",
	)
	p.PurchasePrice = FormatKRW(ParsePriceKRW(priceText))

	// 代表图：缩略图列表 + 主图，只收 coupangcdn 域名，主图提升到首位
	var thumbs []string
	doc.Find(`.product-image img, .twc-w-\[70px\] img, .prod-thumbnail img, .thumbnail-list img`).Each(func(_ int, s *goquery.Selection) {
		src := UpgradeImageURL(imgSrc(s), model.SiteCoupang)
		if src != "" && hostAllowed(src, "coupangcdn.com") {
			thumbs = append(thumbs, src)
		}
	})
	mainImg := UpgradeImageURL(
		imgSrc(doc.Find(`img.prod-thumbnail__image, img[data-test="productMainImage"]`).First()),
		model.SiteCoupang,
	)
	p.Images = DedupImages(mainImg, thumbs)
	if len(p.Images) > 0 {
		p.MainImage = p.Images[0]
	}

	// 详情图
	var details []string
	doc.Find("#prodDetail img, .prod-description img, .detail-content img, .product-detail-content-new img").Each(func(_ int, s *goquery.Selection) {
		if src := UpgradeImageURL(imgSrc(s), model.SiteCoupang); src != "" {
			details = append(details, src)
		}
	})
	p.DetailImages = DedupImages("", details)

	// 选项：同一个选项块里下拉条目和表格行两种标记都可能出现，两遍都收
	doc.Find(".option-picker-select, .option-table-v2").Each(func(idx int, block *goquery.Selection) {
		group := model.OptionGroup{
			Name: strings.TrimSpace(block.Find(".twc-flex-1").First().Text()),
		}
		if group.Name == "" {
			group.Name = positionalOptionName(idx)
		}

		block.Find(".select-item").Each(func(_ int, li *goquery.Selection) {
			item, ok := optionItem(li,
				li.Find(".twc-font-bold").First().Text(),
				li.Find(".price-text").First().Text(),
			)
			if ok {
				group.Items = append(group.Items, item)
			}
		})

		block.Find(".option-table-list__option").Each(func(_ int, row *goquery.Selection) {
			item, ok := optionItem(row,
				row.Find(".option-table-list__option-name").First().Text(),
				row.Find(".option-table-list__option-price").First().Text(),
			)
			if ok {
				group.Items = append(group.Items, item)
			}
		})

		p.Options = appendGroup(p.Options, group)
	})

	// 认证信息
	scanCertTable(doc, "#itemBrief table tr", p)

	if p.Title == "" && p.ProductCode == "" && len(p.Images) == 0 {
		return nil, &ExtractionFailure{Site: model.SiteCoupang, Message: "页面结构不匹配，未提取到任何字段"}
	}
	return p, nil
}
