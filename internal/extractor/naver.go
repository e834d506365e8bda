package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"kfinder_dev_v1_202608/internal/model"
)

// ==================== Naver 스마트스토어 / 브랜드스토어 ====================

var naverProductPathRe = regexp.MustCompile(`/products/(\d+)`)

const (
	naverImageHost      = "shop-phinf.pstatic.net"
	naverMaxThumbnails  = 8
	naverMaxDetailShots = 15
)

// ExtractNaver 抓取 Naver 智能店铺 / 品牌店铺商品页
// 两种店铺共用一套页面模板，站点标识按域名区分
func ExtractNaver(doc *goquery.Document, pageURL string) (*model.RawProduct, error) {
	site := model.SiteNaverSmart
	if strings.Contains(pageURL, "brand.naver.com") {
		site = model.SiteNaverBrand
	}

	p := &model.RawProduct{
		SourceURL:   pageURL,
		Site:        site,
		CaptureDate: captureDate(),
		SaleUnit:    model.DefaultSaleUnit,
	}

	// 商品编号在 URL 路径里：/products/<id>
	if m := naverProductPathRe.FindStringSubmatch(pageURL); m != nil {
		p.ProductCode = m[1]
	}

	// 标题（class 名是构建工具生成的混淆串，新旧模板各留一个候选）
	p.Title = firstText(doc, "h3.DCVBehA8ZB", ".product_title h3")
	p.WeightKG = InferWeightKG(p.Title)

	p.Brand = firstText(doc, `.product_article ._2L3vDuo0YM a`, `[class*="brand"]`)
	if p.Brand == "" {
		p.Brand = model.DefaultBrand
	}

	priceText := firstText(doc, ".Xu9MEKUuIo.s6EKUu28OE .e1DMQNBPJ_", ".price em")
	p.PurchasePrice = FormatKRW(ParsePriceKRW(priceText))

	// 运费是数字串，抓不到记 0（Naver 很多店免运费）
	shippingText := firstText(doc, "span.Se0UVy4E71", ".delivery_fee")
	if fee := ParsePriceKRW(shippingText); fee > 0 {
		p.ShippingFee = strconv.FormatInt(fee, 10)
	} else {
		p.ShippingFee = "0"
	}

	// 代表图：主图在前，缩略图列表限定 pstatic 域名，最多 8 张
	mainImg := UpgradeImageURL(imgSrc(doc.Find("img.bd_2DO68, .image_thumb img").First()), site)
	var thumbs []string
	doc.Find("img.bd_1Niq0, .thumbnail img").Each(func(_ int, s *goquery.Selection) {
		src := UpgradeImageURL(imgSrc(s), site)
		if src != "" && hostAllowed(src, naverImageHost) {
			thumbs = append(thumbs, src)
		}
	})
	p.Images = DedupImages(mainImg, thumbs)
	if len(p.Images) > naverMaxThumbnails {
		p.Images = p.Images[:naverMaxThumbnails]
	}
	if len(p.Images) > 0 {
		p.MainImage = p.Images[0]
	}

	// 详情图来自 SmartEditor 正文，最多 15 张
	var details []string
	doc.Find(".se-image-resource, .se-module-image img, .detail_content img").Each(func(_ int, s *goquery.Selection) {
		if src := imgSrc(s); src != "" && !strings.HasPrefix(src, "data:") && hostAllowed(src, naverImageHost) {
			details = append(details, src)
		}
	})
	p.DetailImages = DedupImages("", details)
	if len(p.DetailImages) > naverMaxDetailShots {
		p.DetailImages = p.DetailImages[:naverMaxDetailShots]
	}

	// 选项：Naver 模板不给组名，用位置兜底名
	doc.Find(".product_option_area ul, .optionArea ul").Each(func(idx int, group *goquery.Selection) {
		g := model.OptionGroup{Name: positionalOptionName(idx)}
		group.Find("li").Each(func(_ int, li *goquery.Selection) {
			if item, ok := optionItem(li, li.Text(), ""); ok {
				g.Items = append(g.Items, item)
			}
		})
		p.Options = appendGroup(p.Options, g)
	})

	if p.Title == "" && p.ProductCode == "" && len(p.Images) == 0 {
		return nil, &ExtractionFailure{Site: site, Message: "页面结构不匹配，未提取到任何字段"}
	}
	return p, nil
}
