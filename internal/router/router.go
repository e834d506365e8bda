package router

import (
	"github.com/gin-gonic/gin"

	"kfinder_dev_v1_202608/internal/controller"
	"kfinder_dev_v1_202608/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	Sourcing *controller.SourcingController
	Setting  *controller.SettingController
}

// SetupRouter 注册所有路由
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// 抓取与分析
		api.POST("/capture", middleware.Cooldown(middleware.ActionCapture, 0), ctls.Sourcing.Capture)
		api.POST("/analyze", middleware.Cooldown(middleware.ActionAnalyze, 0), ctls.Sourcing.Analyze)

		// 保存记录
		records := api.Group("/records")
		{
			records.POST("", ctls.Sourcing.Save)
			records.GET("", ctls.Sourcing.List)
			// export 必须放在 :key 前面注册，否则会被通配吃掉
			records.GET("/export", ctls.Sourcing.Export)
			records.GET("/:key", ctls.Sourcing.Get)
			records.DELETE("/:key", ctls.Sourcing.Delete)
			records.DELETE("", ctls.Sourcing.DeleteAll)
		}

		// 设置
		settings := api.Group("/settings")
		{
			settings.GET("/gemini-key", ctls.Setting.GetGeminiKey)
			settings.PUT("/gemini-key", ctls.Setting.SaveGeminiKey)
			settings.POST("/gemini-key/test", ctls.Setting.TestGeminiKey)
		}
	}

	return r
}
