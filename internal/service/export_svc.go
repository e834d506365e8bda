package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"kfinder_dev_v1_202608/internal/model"
	"kfinder_dev_v1_202608/internal/repository"
)

// ==================== CSV 导出 ====================

// Excel 识别 UTF-8 韩文需要 BOM 前缀
const csvBOM = "\uFEFF"

// 导出列顺序固定，下游对账模板按列位读取
var csvHeaders = []string{"소싱날짜", "소싱처", "상품코드", "물품명", "브랜드", "무게", "구입가", "판매가", "배송비"}

// ExportService 保存列表 CSV 导出服务
type ExportService struct {
	recordRepo repository.SavedRecordRepository
	log        *logrus.Entry
}

// NewExportService 创建导出服务
func NewExportService(recordRepo repository.SavedRecordRepository) *ExportService {
	return &ExportService{
		recordRepo: recordRepo,
		log:        logrus.WithField("service", "export"),
	}
}

// ExportFilename 导出文件名：Shopee_Sourcing_<当天日期>.csv
func ExportFilename() string {
	return fmt.Sprintf("Shopee_Sourcing_%s.csv", time.Now().Format("2006-01-02"))
}

// ExportCSV 导出全部已保存商品
// 无数据时报错而不是产出空文件
func (s *ExportService) ExportCSV(ctx context.Context) ([]byte, error) {
	records, err := s.recordRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取保存列表失败: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("没有可导出的数据")
	}

	s.log.WithField("count", len(records)).Info("开始导出 CSV")
	return BuildCSV(records), nil
}

// BuildCSV 生成 CSV 内容
// 表头行不加引号；数据行每个值都加引号，内部引号翻倍
func BuildCSV(records []model.SavedRecord) []byte {
	var b strings.Builder
	b.WriteString(csvBOM)
	b.WriteString(strings.Join(csvHeaders, ","))

	for _, r := range records {
		values := []string{
			r.CaptureDate,
			r.Site,
			r.ProductCode,
			r.Title,
			r.Brand,
			r.WeightKG,
			r.PurchasePrice,
			r.SalePrice,
			r.ShippingFee,
		}

		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}

		b.WriteString("\n")
		b.WriteString(strings.Join(quoted, ","))
	}

	return []byte(b.String())
}
