package controller

import (
	"strings"

	"github.com/gin-gonic/gin"

	"kfinder_dev_v1_202608/internal/model"
	"kfinder_dev_v1_202608/internal/repository"
	"kfinder_dev_v1_202608/internal/service"
)

type SettingController struct {
	settingRepo repository.SettingRepository
	aiService   *service.AIService
}

func NewSettingController(settingRepo repository.SettingRepository, aiService *service.AIService) *SettingController {
	return &SettingController{
		settingRepo: settingRepo,
		aiService:   aiService,
	}
}

// ==================== Gemini Key 管理 ====================

// GetGeminiKey 查询已保存的 Key（脱敏返回）
// @Summary 查询 Gemini API Key 配置状态
// @Tags Setting
// @Router /api/settings/gemini-key [get]
func (ctrl *SettingController) GetGeminiKey(c *gin.Context) {
	value, err := ctrl.settingRepo.Get(c.Request.Context(), model.SettingGeminiAPIKey)
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"configured": value != "",
			"masked_key": maskKey(value),
		},
	})
}

// GeminiKeyReq Key 保存/校验请求
type GeminiKeyReq struct {
	APIKey string `json:"api_key" binding:"required"`
}

// SaveGeminiKey 保存 Key
// @Summary 保存 Gemini API Key
// @Tags Setting
// @Router /api/settings/gemini-key [put]
func (ctrl *SettingController) SaveGeminiKey(c *gin.Context) {
	var req GeminiKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "无效的请求参数: " + err.Error()})
		return
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		c.JSON(400, gin.H{"code": 400, "message": "API Key 不能为空"})
		return
	}

	if err := ctrl.settingRepo.Set(c.Request.Context(), model.SettingGeminiAPIKey, key); err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "保存失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success"})
}

// TestGeminiKey 校验 Key 是否可用
// @Summary 发起一次低成本探测调用校验 Key
// @Tags Setting
// @Router /api/settings/gemini-key/test [post]
func (ctrl *SettingController) TestGeminiKey(c *gin.Context) {
	var req GeminiKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "无效的请求参数: " + err.Error()})
		return
	}

	result := ctrl.aiService.TestCredential(c.Request.Context(), req.APIKey)

	// 按探测结果区分提示语，方便前端直接展示
	message := "API Key 可用"
	if !result.OK {
		switch {
		case result.Status == 400 || result.Status == 401 || result.Status == 403:
			message = "API Key 无效或没有权限"
		case result.Status == 429:
			message = "请求过于频繁，请稍后再试"
		case result.Status >= 500:
			message = "Gemini 服务暂时不可用"
		default:
			message = "校验失败: " + result.ErrorMessage
		}
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": message,
		"data":    result,
	})
}

// maskKey 只露出前 4 位和后 4 位
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
