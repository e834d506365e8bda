package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"kfinder_dev_v1_202608/internal/model"
)

// ==================== Gmarket ====================

// ExtractGmarket 抓取 Gmarket 商品页
func ExtractGmarket(doc *goquery.Document, pageURL string) (*model.RawProduct, error) {
	p := &model.RawProduct{
		SourceURL:   pageURL,
		Site:        model.SiteGmarket,
		CaptureDate: captureDate(),
		SaleUnit:    model.DefaultSaleUnit,
		ShippingFee: "2500",
	}

	// 商品编号在 goodscode 参数里
	if u, err := url.Parse(pageURL); err == nil {
		p.ProductCode = u.Query().Get("goodscode")
	}

	p.Title = firstText(doc, "h1.itemtit", ".itemtit")
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	p.WeightKG = InferWeightKG(p.Title)

	p.Brand = firstText(doc, ".brand-name a", ".text__brand a", `[class*="brand"]`)
	if p.Brand == "" {
		p.Brand = model.DefaultBrand
	}

	priceText := firstText(doc, ".price_real", ".price_innerwrap strong", ".item_price .price")
	p.PurchasePrice = FormatKRW(ParsePriceKRW(priceText))

	// 代表图限定 gmarket 图床
	mainImg := UpgradeImageURL(imgSrc(doc.Find(".viewer img, #mainImage").First()), model.SiteGmarket)
	var thumbs []string
	doc.Find(".thumb-gallery img, .item_photo img").Each(func(_ int, s *goquery.Selection) {
		src := UpgradeImageURL(imgSrc(s), model.SiteGmarket)
		if src != "" && hostAllowed(src, "gdimg.gmarket.co.kr", "image.gmarket.co.kr") {
			thumbs = append(thumbs, src)
		}
	})
	p.Images = DedupImages(mainImg, thumbs)
	if len(p.Images) > 0 {
		p.MainImage = p.Images[0]
	}

	var details []string
	doc.Find("#vip-tab_detail img, .item_detail img").Each(func(_ int, s *goquery.Selection) {
		if src := UpgradeImageURL(imgSrc(s), model.SiteGmarket); src != "" {
			details = append(details, src)
		}
	})
	p.DetailImages = DedupImages("", details)

	// 选项下拉
	doc.Find(".option_section select, select.option-select").Each(func(idx int, sel *goquery.Selection) {
		g := model.OptionGroup{Name: sel.AttrOr("title", "")}
		if g.Name == "" {
			g.Name = positionalOptionName(idx)
		}
		sel.Find("option").Each(func(i int, opt *goquery.Selection) {
			if i == 0 {
				return // 第一项是 "선택하세요" 占位
			}
			if item, ok := optionItem(opt, opt.Text(), ""); ok {
				g.Items = append(g.Items, item)
			}
		})
		p.Options = appendGroup(p.Options, g)
	})

	// 认证信息
	scanCertTable(doc, ".item-info-table tr, .format-info table tr", p)

	if p.Title == "" && p.ProductCode == "" && len(p.Images) == 0 {
		return nil, &ExtractionFailure{Site: model.SiteGmarket, Message: "页面结构不匹配，未提取到任何字段"}
	}
	return p, nil
}
