package model

import (
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ==================== 站点枚举 ====================

// SiteID 来源站点标识
type SiteID string

const (
	SiteCoupang    SiteID = "coupang"
	SiteNaverSmart SiteID = "naver_smart"
	SiteNaverBrand SiteID = "naver_brand"
	SiteGmarket    SiteID = "gmarket"
	SiteDomeggook  SiteID = "domeggook"
	SiteOwnerclan  SiteID = "ownerclan"
	SiteSpecialB2B SiteID = "specialb2b"
)

// ==================== 抓取结果 ====================

// 各字段缺省值（页面抓不到时回退使用）
const (
	DefaultBrand     = "No Brand"
	DefaultWeightKG  = "0.50"
	DefaultPriceKRW  = "0원"
	DefaultSaleUnit  = "EA"
)

// RawProduct 单个商品页的抓取结果（统一跨站点结构）
// 除 SourceURL / Site / CaptureDate 外，所有字段都允许缺失，
// 缺失时填充上面的缺省值，绝不因某个选择器失效而整体失败。
type RawProduct struct {
	SourceURL   string `json:"source_url"`
	Site        SiteID `json:"site"`
	ProductCode string `json:"product_code"`
	CaptureDate string `json:"capture_date"` // YYYY-MM-DD

	Title string `json:"title"`
	Brand string `json:"brand"`

	WeightKG      string `json:"weight_kg"`      // 两位小数字符串，如 "0.50"
	PurchasePrice string `json:"purchase_price"` // 如 "12,900원"
	SalePrice     string `json:"sale_price,omitempty"`
	ShippingFee   string `json:"shipping_fee"`

	MainImage    string   `json:"main_image"`
	Images       []string `json:"images"`        // 代表图，去重后保持首见顺序
	DetailImages []string `json:"detail_images"` // 详情图，按站点上限截断

	Options []OptionGroup `json:"options,omitempty"`

	// 认证信息（KC 认证等，仅部分站点提供）
	CertElectric  string `json:"cert_electric,omitempty"`
	CertChildren  string `json:"cert_children,omitempty"`
	CertHousehold string `json:"cert_household,omitempty"`
	CertBroadcast string `json:"cert_broadcast,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	OriginDetail  string `json:"origin_detail,omitempty"`

	SaleUnit string `json:"sale_unit"` // 固定 "EA"
}

// OptionGroup 商品页上的一个选项维度（如颜色）
type OptionGroup struct {
	Name  string       `json:"name"` // 页面未提供时回退为 "옵션N"
	Items []OptionItem `json:"items"`
}

// OptionItem 选项维度下的一个可选值
// Label 为空的条目在抓取阶段直接丢弃
type OptionItem struct {
	Label     string `json:"label"`
	PriceText string `json:"price_text,omitempty"`
	SoldOut   bool   `json:"sold_out"`
}

// HasCertInfo 是否携带任一认证字段
func (p *RawProduct) HasCertInfo() bool {
	return p.CertElectric != "" || p.CertChildren != "" || p.CertHousehold != "" ||
		p.CertBroadcast != "" || p.Manufacturer != "" || p.OriginDetail != ""
}

// ==================== 持久化模型 ====================

// SavedRecord 已保存商品（抓取结果 + AI 分析 + 人工修改后落库）
// SaveKey 形如 product_<毫秒时间戳>_<9位随机后缀>，与列表/导出的前缀过滤约定一致
type SavedRecord struct {
	ID      int64  `gorm:"primary_key;AUTO_INCREMENT"`
	SaveKey string `gorm:"size:64;uniqueIndex;not null"`

	Site        string `gorm:"size:20;index"`
	ProductCode string `gorm:"size:64;index"`
	Title       string `gorm:"size:512"`
	Brand       string `gorm:"size:128"`

	CaptureDate   string `gorm:"size:10"`
	WeightKG      string `gorm:"size:16"`
	PurchasePrice string `gorm:"size:32"`
	SalePrice     string `gorm:"size:32"`
	ShippingFee   string `gorm:"size:32"`

	MainImage string         `gorm:"size:1024"`
	Images    pq.StringArray `gorm:"type:text[]"`

	// 完整抓取结果与 AI 分析结果原样保留，便于重新编辑/导出
	Product    datatypes.JSON `gorm:"type:jsonb"`
	Enrichment datatypes.JSON `gorm:"type:jsonb"`

	SavedAt int64 `gorm:"index"` // Unix 毫秒
}

func (SavedRecord) TableName() string {
	return "saved_records"
}
