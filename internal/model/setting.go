package model

// ==================== 设置 ====================

// 已知设置键
const (
	SettingGeminiAPIKey  = "gemini_api_key"
	SettingMarginPercent = "margin_percent"
)

// Setting 键值设置表（API Key、利润率等）
type Setting struct {
	ID    int64  `gorm:"primary_key;AUTO_INCREMENT"`
	Key   string `gorm:"size:64;uniqueIndex;not null"`
	Value string `gorm:"size:2048"`
}

func (Setting) TableName() string {
	return "settings"
}
