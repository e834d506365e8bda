package controller

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"kfinder_dev_v1_202608/internal/extractor"
	"kfinder_dev_v1_202608/internal/model"
	"kfinder_dev_v1_202608/internal/repository"
	"kfinder_dev_v1_202608/internal/service"
)

type SourcingController struct {
	sourcingService *service.SourcingService
	aiService       *service.AIService
	exportService   *service.ExportService
	recordRepo      repository.SavedRecordRepository
	settingRepo     repository.SettingRepository
}

func NewSourcingController(
	sourcingService *service.SourcingService,
	aiService *service.AIService,
	exportService *service.ExportService,
	recordRepo repository.SavedRecordRepository,
	settingRepo repository.SettingRepository,
) *SourcingController {
	return &SourcingController{
		sourcingService: sourcingService,
		aiService:       aiService,
		exportService:   exportService,
		recordRepo:      recordRepo,
		settingRepo:     settingRepo,
	}
}

// ==================== 抓取与分析 ====================

// CaptureReq 抓取请求
type CaptureReq struct {
	URL string `json:"url" binding:"required"`
}

// Capture 抓取单个商品页
// @Summary 抓取商品页并返回统一结构
// @Tags Sourcing
// @Router /api/capture [post]
func (ctrl *SourcingController) Capture(c *gin.Context) {
	var req CaptureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "无效的请求参数: " + err.Error()})
		return
	}

	product, err := ctrl.sourcingService.Capture(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, extractor.ErrUnsupportedSite) {
			c.JSON(400, gin.H{"code": 400, "message": err.Error()})
			return
		}
		c.JSON(502, gin.H{"code": 502, "message": "抓取失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success", "data": product})
}

// AnalyzeReq 分析请求：直接带上前面抓取到的完整结构
type AnalyzeReq struct {
	Product model.RawProduct `json:"product" binding:"required"`
}

// Analyze 对抓取结果做 AI 分析
// @Summary AI 分析抓取结果
// @Tags Sourcing
// @Router /api/analyze [post]
func (ctrl *SourcingController) Analyze(c *gin.Context) {
	var req AnalyzeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "无效的请求参数: " + err.Error()})
		return
	}

	ctx := c.Request.Context()

	// 配置里的 Key 优先，否则用设置表里保存的
	apiKey := ctrl.aiService.Config.APIKey
	if apiKey == "" {
		apiKey, _ = ctrl.settingRepo.Get(ctx, model.SettingGeminiAPIKey)
	}

	enrichment, err := ctrl.aiService.AnalyzeWithKey(ctx, apiKey, &req.Product)
	if err != nil {
		var upstream *service.UpstreamHTTPError
		var blocked *service.ContentBlockedError
		switch {
		case errors.Is(err, service.ErrMissingCredential):
			c.JSON(400, gin.H{"code": 400, "message": err.Error()})
		case errors.As(err, &blocked):
			c.JSON(422, gin.H{"code": 422, "message": err.Error()})
		case errors.As(err, &upstream):
			c.JSON(502, gin.H{"code": 502, "message": err.Error()})
		default:
			c.JSON(502, gin.H{"code": 502, "message": "分析失败: " + err.Error()})
		}
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success", "data": enrichment})
}

// ==================== 保存记录 ====================

// SaveReq 保存请求
type SaveReq struct {
	Product    model.RawProduct  `json:"product" binding:"required"`
	Enrichment *model.Enrichment `json:"enrichment"`
}

// Save 保存一条采集记录
// @Summary 保存抓取结果（可带 AI 分析）
// @Tags Record
// @Router /api/records [post]
func (ctrl *SourcingController) Save(c *gin.Context) {
	var req SaveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "无效的请求参数: " + err.Error()})
		return
	}

	saveKey, err := ctrl.sourcingService.Save(c.Request.Context(), &req.Product, req.Enrichment)
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "保存失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success", "data": gin.H{"save_key": saveKey}})
}

// List 保存记录列表
// @Summary 分页查询保存记录（按保存时间倒序）
// @Tags Record
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Router /api/records [get]
func (ctrl *SourcingController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx := c.Request.Context()
	records, err := ctrl.recordRepo.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}
	total, err := ctrl.recordRepo.Count(ctx)
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":      0,
		"message":   "success",
		"data":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get 保存记录详情
// @Summary 按保存键查询单条记录
// @Tags Record
// @Router /api/records/{key} [get]
func (ctrl *SourcingController) Get(c *gin.Context) {
	saveKey := c.Param("key")

	record, err := ctrl.recordRepo.GetByKey(c.Request.Context(), saveKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(404, gin.H{"code": 404, "message": "记录不存在"})
			return
		}
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success", "data": record})
}

// Delete 删除单条记录
// @Summary 按保存键删除记录
// @Tags Record
// @Router /api/records/{key} [delete]
func (ctrl *SourcingController) Delete(c *gin.Context) {
	saveKey := c.Param("key")

	if err := ctrl.recordRepo.DeleteByKey(c.Request.Context(), saveKey); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(404, gin.H{"code": 404, "message": "记录不存在"})
			return
		}
		c.JSON(500, gin.H{"code": 500, "message": "删除失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success"})
}

// DeleteAll 清空全部记录
// @Summary 清空保存记录
// @Tags Record
// @Router /api/records [delete]
func (ctrl *SourcingController) DeleteAll(c *gin.Context) {
	deleted, err := ctrl.recordRepo.DeleteAll(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "清空失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success", "data": gin.H{"deleted": deleted}})
}

// ==================== CSV 导出 ====================

// Export 导出 CSV
// @Summary 导出全部保存记录为 CSV
// @Tags Record
// @Router /api/records/export [get]
func (ctrl *SourcingController) Export(c *gin.Context) {
	content, err := ctrl.exportService.ExportCSV(c.Request.Context())
	if err != nil {
		c.JSON(400, gin.H{"code": 400, "message": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+service.ExportFilename()+`"`)
	c.Data(200, "text/csv; charset=utf-8", content)
}
