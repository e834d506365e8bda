package extractor

import (
	"strings"
	"testing"

	"kfinder_dev_v1_202608/internal/model"
)

const coupangFixture = `<html><body>
<h2 class="prod-buy-header__title">프리미엄 스테인리스 텀블러 500ml 2개 세트</h2>
<div class="prod-brand-name"><a>스탠리코리아</a></div>
<span class="sales-price-amount">23,900원</span>
<div class="prod-description">
	<li>쿠팡상품번호: 7712345678</li>
	<li>재질: 스테인리스</li>
</div>
<div class="thumbnail-list">
	<img src="//thumbnail1.coupangcdn.com/48x48ex/t1.jpg">
	<img src="//thumbnail2.coupangcdn.com/48x48ex/t2.jpg">
	<img src="//thumbnail1.coupangcdn.com/48x48ex/t1.jpg">
	<img src="https://ads.partner.com/banner.jpg">
	<img src="data:image/gif;base64,R0lGOD">
</div>
<img class="prod-thumbnail__image" src="//thumbnail1.coupangcdn.com/thumbnail/main.jpg">
<div class="prod-description">
	<img data-src="//image.coupangcdn.com/detail/d1.jpg" src="data:image/gif;base64,R0">
	<img src="//image.coupangcdn.com/detail/d2.jpg">
</div>
<div class="option-picker-select">
	<div class="twc-flex-1">색상</div>
	<li class="select-item"><span class="twc-font-bold">블랙</span><span class="price-text">+0원</span></li>
	<li class="select-item disabled"><span class="twc-font-bold">실버</span><span class="price-text">+1,000원</span></li>
	<li class="select-item"><span class="price-text">+2,000원</span></li>
</div>
<div id="itemBrief"><table>
	<tr><td>KC 전기용품 인증</td><td>HU07070-20001</td><td>제조국</td><td>중국</td></tr>
	<tr><td>제조사</td><td>스탠리 주식회사</td><td>색상코드</td><td>BK01</td></tr>
</table></div>
</body></html>`

func TestExtractCoupang(t *testing.T) {
	doc := mustParse(t, coupangFixture)
	p, err := ExtractCoupang(doc, "https://www.coupang.com/vp/products/123")
	if err != nil {
		t.Fatalf("抓取失败: %v", err)
	}

	if p.Site != model.SiteCoupang {
		t.Errorf("站点标识错误: %s", p.Site)
	}
	if p.ProductCode != "7712345678" {
		t.Errorf("描述区商品编号回退失败: got %q", p.ProductCode)
	}
	if p.Title != "프리미엄 스테인리스 텀블러 500ml 2개 세트" {
		t.Errorf("标题错误: %q", p.Title)
	}
	if p.WeightKG != "0.50" {
		t.Errorf("500ml 应推断为 0.50kg: got %q", p.WeightKG)
	}
	if p.Brand != "스탠리코리아" {
		t.Errorf("品牌错误: %q", p.Brand)
	}
	if p.PurchasePrice != "23,900원" {
		t.Errorf("价格错误: %q", p.PurchasePrice)
	}
	if p.ShippingFee != "3000" {
		t.Errorf("쿠팡默认运费应为 3000: got %q", p.ShippingFee)
	}
	if p.SaleUnit != "EA" {
		t.Errorf("销售单位应固定为 EA: got %q", p.SaleUnit)
	}
}

func TestExtractCoupang_Images(t *testing.T) {
	doc := mustParse(t, coupangFixture)
	p, err := ExtractCoupang(doc, "https://www.coupang.com/vp/products/123")
	if err != nil {
		t.Fatalf("抓取失败: %v", err)
	}

	// 主图升级后排在首位，非 coupangcdn 域名与 data: 協議被过滤，t1 去重
	if p.MainImage != "https://thumbnail1.coupangcdn.com/492x492ex/main.jpg" {
		t.Errorf("主图错误: %q", p.MainImage)
	}
	if len(p.Images) != 3 {
		t.Fatalf("代表图数量错误: got %d, want 3: %v", len(p.Images), p.Images)
	}
	for _, img := range p.Images {
		if !strings.HasPrefix(img, "https://") {
			t.Errorf("协议相对地址未补全: %q", img)
		}
		if !strings.Contains(img, "492x492ex") {
			t.Errorf("缩略图未升级: %q", img)
		}
	}

	// 详情图 data-src 优先于占位 src
	if len(p.DetailImages) != 2 {
		t.Fatalf("详情图数量错误: got %d: %v", len(p.DetailImages), p.DetailImages)
	}
	if p.DetailImages[0] != "https://image.coupangcdn.com/detail/d1.jpg" {
		t.Errorf("懒加载 data-src 未优先使用: %q", p.DetailImages[0])
	}
}

func TestExtractCoupang_OptionsAndCerts(t *testing.T) {
	doc := mustParse(t, coupangFixture)
	p, err := ExtractCoupang(doc, "https://www.coupang.com/vp/products/123")
	if err != nil {
		t.Fatalf("抓取失败: %v", err)
	}

	if len(p.Options) != 1 {
		t.Fatalf("选项组数量错误: got %d", len(p.Options))
	}
	g := p.Options[0]
	if g.Name != "색상" {
		t.Errorf("组名错误: %q", g.Name)
	}
	// 无标签条目被丢弃
	if len(g.Items) != 2 {
		t.Fatalf("选项条目数量错误: got %d", len(g.Items))
	}
	if g.Items[0].Label != "블랙" || g.Items[0].PriceText != "+0원" || g.Items[0].SoldOut {
		t.Errorf("第一条选项解析错误: %+v", g.Items[0])
	}
	if !g.Items[1].SoldOut {
		t.Error("disabled 条目应标记售罄")
	}

	// 认证表按 (标签, 值) 成对读取，未命中的键值对忽略
	if p.CertElectric != "HU07070-20001" {
		t.Errorf("电器认证错误: %q", p.CertElectric)
	}
	if p.Manufacturer != "스탠리 주식회사" {
		t.Errorf("制造商错误: %q", p.Manufacturer)
	}
	if p.OriginDetail != "중국" {
		t.Errorf("原产地错误: %q", p.OriginDetail)
	}
	if p.CertChildren != "" {
		t.Errorf("不存在的认证字段应为空: %q", p.CertChildren)
	}
}

func TestExtractCoupang_ItemIDFromURL(t *testing.T) {
	doc := mustParse(t, `<html><body><h2 class="prod-buy-header__title">상품</h2></body></html>`)
	p, err := ExtractCoupang(doc, "https://www.coupang.com/vp/products/123?itemId=99887766")
	if err != nil {
		t.Fatalf("抓取失败: %v", err)
	}
	if p.ProductCode != "99887766" {
		t.Errorf("URL itemId 参数未优先使用: got %q", p.ProductCode)
	}
}

func TestExtractCoupang_DefaultsOnSparsePage(t *testing.T) {
	doc := mustParse(t, `<html><body><h2 class="prod-buy-header__title">미니 선풍기</h2></body></html>`)
	p, err := ExtractCoupang(doc, "https://www.coupang.com/vp/products/123")
	if err != nil {
		t.Fatalf("字段缺失不应导致整体失败: %v", err)
	}

	if p.Brand != model.DefaultBrand {
		t.Errorf("品牌缺省值错误: %q", p.Brand)
	}
	if p.WeightKG != model.DefaultWeightKG {
		t.Errorf("重量缺省值错误: %q", p.WeightKG)
	}
	if p.PurchasePrice != model.DefaultPriceKRW {
		t.Errorf("价格缺省值错误: %q", p.PurchasePrice)
	}
	if len(p.Options) != 0 {
		t.Errorf("无选项页面不应出现选项组: %v", p.Options)
	}
}

func TestExtractCoupang_TotalFailure(t *testing.T) {
	doc := mustParse(t, "<html><body><p>404 Not Found</p></body></html>")
	_, err := ExtractCoupang(doc, "https://www.coupang.com/vp/products/0")
	if err == nil {
		t.Fatal("完全空白页面应返回 ExtractionFailure")
	}
}
