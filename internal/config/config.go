package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 全局配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Page      PageConfig      `mapstructure:"page"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug | release
}

// DatabaseConfig 数据库连接配置
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// GeminiConfig AI 分析配置
type GeminiConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PageConfig 页面抓取配置
type PageConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	ProxyURL string        `mapstructure:"proxy_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Debug    bool          `mapstructure:"debug"`
}

// RetentionConfig 保存记录清理配置
type RetentionConfig struct {
	Days int `mapstructure:"days"` // 0 表示不清理
}

// ==================== 加载 ====================

// Load 加载配置：配置文件可选，环境变量（KFINDER_ 前缀）优先
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("KFINDER")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 没有配置文件就只用环境变量和缺省值
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("配置解析失败: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("配置不合法: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=kfinder port=5432 sslmode=disable")

	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.endpoint", "https://generativelanguage.googleapis.com/v1/models")
	v.SetDefault("gemini.timeout", "60s")

	v.SetDefault("page.timeout", "20s")
	v.SetDefault("page.cache_ttl", "5m")
	v.SetDefault("page.debug", false)

	v.SetDefault("retention.days", 0)
}

func validate(config *Config) error {
	if config.Server.Mode != "debug" && config.Server.Mode != "release" {
		return fmt.Errorf("server.mode 只能是 debug 或 release, 实际: %s", config.Server.Mode)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("database.dsn 不能为空")
	}
	if config.Retention.Days < 0 {
		return fmt.Errorf("retention.days 不能为负数")
	}
	return nil
}
