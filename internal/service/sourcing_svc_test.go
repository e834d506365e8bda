package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"kfinder_dev_v1_202608/internal/extractor"
	"kfinder_dev_v1_202608/internal/model"
)

// 内存版仓储，只覆盖 Save 用到的 Create
type fakeRecordRepo struct {
	records []*model.SavedRecord
	failErr error
}

func (f *fakeRecordRepo) Create(ctx context.Context, record *model.SavedRecord) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeRecordRepo) GetByKey(ctx context.Context, saveKey string) (*model.SavedRecord, error) {
	for _, r := range f.records {
		if r.SaveKey == saveKey {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRecordRepo) List(ctx context.Context, offset, limit int) ([]model.SavedRecord, error) {
	return nil, nil
}
func (f *fakeRecordRepo) ListAll(ctx context.Context) ([]model.SavedRecord, error) { return nil, nil }
func (f *fakeRecordRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.records)), nil
}
func (f *fakeRecordRepo) DeleteByKey(ctx context.Context, saveKey string) error { return nil }
func (f *fakeRecordRepo) DeleteAll(ctx context.Context) (int64, error)          { return 0, nil }
func (f *fakeRecordRepo) DeleteOlderThan(ctx context.Context, cutoffMillis int64) (int64, error) {
	return 0, nil
}

func TestCalcSalePrice(t *testing.T) {
	tests := []struct {
		name     string
		purchase string
		margin   int
		want     string
	}{
		{"整百结果", "10,000원", 30, "13,000원"},
		{"向上取整到百元", "23,900원", 30, "31,100원"},
		{"利润率 50", "10,000원", 50, "15,000원"},
		{"非法利润率回退缺省值", "10,000원", 0, "13,000원"},
		{"进货价无数字", "가격 문의", 30, ""},
		{"空进货价", "", 30, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalcSalePrice(tt.purchase, tt.margin); got != tt.want {
				t.Errorf("CalcSalePrice(%q, %d) = %q, 期望 %q", tt.purchase, tt.margin, got, tt.want)
			}
		})
	}
}

func TestNewSaveKey(t *testing.T) {
	key := NewSaveKey()

	if !strings.HasPrefix(key, "product_") {
		t.Fatalf("保存键前缀错误: %s", key)
	}
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		t.Fatalf("保存键结构错误: %s", key)
	}
	if len(parts[2]) != 9 {
		t.Errorf("随机后缀应为 9 位, 实际 %d", len(parts[2]))
	}

	if NewSaveKey() == key {
		t.Error("两次生成的保存键不应相同")
	}
}

func TestSourcingService_Save(t *testing.T) {
	repo := &fakeRecordRepo{}
	svc := NewSourcingService(nil, repo)
	ctx := context.Background()

	product := &model.RawProduct{
		SourceURL:     "https://www.coupang.com/vp/products/123",
		Site:          model.SiteCoupang,
		ProductCode:   "123",
		CaptureDate:   "2026-08-29",
		Title:         "텀블러",
		Brand:         "스탠리",
		WeightKG:      "0.50",
		PurchasePrice: "23,900원",
		SalePrice:     "31,100원",
		ShippingFee:   "3000",
		MainImage:     "https://thumbnail1.coupangcdn.com/492x492ex/main.jpg",
		Images:        []string{"https://thumbnail1.coupangcdn.com/492x492ex/main.jpg"},
	}
	enrichment := model.DefaultEnrichment()
	enrichment.ProductNameEN = "Tumbler"

	saveKey, err := svc.Save(ctx, product, enrichment)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(saveKey, "product_") {
		t.Errorf("保存键格式错误: %s", saveKey)
	}

	if len(repo.records) != 1 {
		t.Fatalf("落库数量错误: %d", len(repo.records))
	}
	saved := repo.records[0]
	if saved.Title != "텀블러" || saved.Site != "coupang" {
		t.Errorf("落库字段错误: %+v", saved)
	}
	if saved.SavedAt == 0 {
		t.Error("保存时间未填充")
	}
	if !strings.Contains(string(saved.Product), `"source_url"`) {
		t.Error("完整抓取结果未序列化落库")
	}
	if !strings.Contains(string(saved.Enrichment), "Tumbler") {
		t.Error("分析结果未序列化落库")
	}
}

func TestSourcingService_Save_WithoutEnrichment(t *testing.T) {
	repo := &fakeRecordRepo{}
	svc := NewSourcingService(nil, repo)

	_, err := svc.Save(context.Background(), &model.RawProduct{Title: "상품"}, nil)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(repo.records[0].Enrichment) != 0 {
		t.Error("未分析时 Enrichment 应为空")
	}
}

func TestSourcingService_Save_EmptyProduct(t *testing.T) {
	svc := NewSourcingService(nil, &fakeRecordRepo{})

	if _, err := svc.Save(context.Background(), nil, nil); err == nil {
		t.Error("空抓取结果应报错")
	}
	if _, err := svc.Save(context.Background(), &model.RawProduct{}, nil); err == nil {
		t.Error("无标题的抓取结果应报错")
	}
}

func TestSourcingService_Capture_UnsupportedSite(t *testing.T) {
	svc := NewSourcingService(NewPageService(&PageConfig{}), &fakeRecordRepo{})

	_, err := svc.Capture(context.Background(), "https://www.amazon.com/dp/B000")
	if !errors.Is(err, extractor.ErrUnsupportedSite) {
		t.Errorf("不支持的站点应直接拒绝, 实际: %v", err)
	}
}
