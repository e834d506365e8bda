package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"kfinder_dev_v1_202608/internal/extractor"
	"kfinder_dev_v1_202608/internal/model"
	"kfinder_dev_v1_202608/internal/repository"
)

// ==================== 采集流水线 ====================

// DefaultMarginPercent 缺省利润率（%）
const DefaultMarginPercent = 30

// SourcingService 采集流水线服务
// 串联 页面抓取 → 站点分发 → 字段提取 → 落库 全流程
type SourcingService struct {
	pageService *PageService
	recordRepo  repository.SavedRecordRepository
	log         *logrus.Entry
}

// NewSourcingService 创建采集流水线服务
func NewSourcingService(pageService *PageService, recordRepo repository.SavedRecordRepository) *SourcingService {
	return &SourcingService{
		pageService: pageService,
		recordRepo:  recordRepo,
		log:         logrus.WithField("service", "sourcing"),
	}
}

// Capture 抓取单个商品页并提取统一结构
// 提取出的结果已填好缺省值和预估售价，可直接送 AI 分析或落库
func (s *SourcingService) Capture(ctx context.Context, pageURL string) (*model.RawProduct, error) {
	extract, err := extractor.Dispatch(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := s.pageService.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	product, err := extract(doc, pageURL)
	if err != nil {
		return nil, err
	}

	// 没有现成售价的站点按缺省利润率预估
	if product.SalePrice == "" {
		product.SalePrice = CalcSalePrice(product.PurchasePrice, DefaultMarginPercent)
	}

	s.log.WithFields(logrus.Fields{
		"site": product.Site,
		"code": product.ProductCode,
	}).Info("商品抓取完成")

	return product, nil
}

// CalcSalePrice 按利润率换算建议售价
// 售价 = 进货价 × (1 + 利润率/100)，向上取整到百元
// 进货价解析不出数字时返回空串，由调用方决定兜底
func CalcSalePrice(purchasePrice string, marginPercent int) string {
	if marginPercent <= 0 {
		marginPercent = DefaultMarginPercent
	}

	base := extractor.ParsePriceKRW(purchasePrice)
	if base <= 0 {
		return ""
	}

	calculated := float64(base) * (1 + float64(marginPercent)/100)
	final := int64(math.Ceil(calculated/100) * 100)

	return extractor.FormatKRW(final)
}

// NewSaveKey 生成保存键：product_<毫秒时间戳>_<9位随机后缀>
func NewSaveKey() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("product_%d_%s", time.Now().UnixMilli(), suffix)
}

// Save 把抓取结果（可带 AI 分析）落库，返回保存键
// enrichment 允许为 nil，表示未做分析直接保存
func (s *SourcingService) Save(ctx context.Context, product *model.RawProduct, enrichment *model.Enrichment) (string, error) {
	if product == nil || product.Title == "" {
		return "", fmt.Errorf("抓取结果为空，无法保存")
	}

	productJSON, err := json.Marshal(product)
	if err != nil {
		return "", fmt.Errorf("抓取结果序列化失败: %w", err)
	}

	var enrichmentJSON []byte
	if enrichment != nil {
		if enrichmentJSON, err = json.Marshal(enrichment); err != nil {
			return "", fmt.Errorf("分析结果序列化失败: %w", err)
		}
	}

	record := &model.SavedRecord{
		SaveKey:       NewSaveKey(),
		Site:          string(product.Site),
		ProductCode:   product.ProductCode,
		Title:         product.Title,
		Brand:         product.Brand,
		CaptureDate:   product.CaptureDate,
		WeightKG:      product.WeightKG,
		PurchasePrice: product.PurchasePrice,
		SalePrice:     product.SalePrice,
		ShippingFee:   product.ShippingFee,
		MainImage:     product.MainImage,
		Images:        product.Images,
		Product:       productJSON,
		Enrichment:    enrichmentJSON,
		SavedAt:       time.Now().UnixMilli(),
	}

	if err := s.recordRepo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("保存失败: %w", err)
	}

	s.log.WithField("save_key", record.SaveKey).Info("商品已保存")
	return record.SaveKey, nil
}
