package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 冷却限流器 ====================

// CooldownLimiter 冷却限流器
// 防止频繁触发抓取和 AI 分析导致目标站点封禁或 Gemini 限流
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// 全局限流器实例
var globalLimiter = &CooldownLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *CooldownLimiter {
	return globalLimiter
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时更新最后执行时间
// key: 限流键，如 "capture:10.0.0.1"
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== 限流维度 ====================

// ActionType 限流动作类型
type ActionType string

const (
	ActionCapture ActionType = "capture"
	ActionAnalyze ActionType = "analyze"
)

// 默认冷却间隔
var defaultIntervals = map[ActionType]time.Duration{
	ActionCapture: 2 * time.Second, // 抓取：目标站点反爬
	ActionAnalyze: 5 * time.Second, // 分析：Gemini 免费档限流
}

func clientActionKey(action ActionType, clientIP string) string {
	return fmt.Sprintf("%s:%s", action, clientIP)
}

// ==================== Gin 中间件 ====================

// Cooldown 冷却限流中间件，按客户端 IP + 动作维度限流
// interval 为 0 时使用动作的默认间隔
func Cooldown(action ActionType, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = defaultIntervals[action]
	}

	return func(c *gin.Context) {
		key := clientActionKey(action, c.ClientIP())

		result := GetLimiter().Check(key, interval)
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":        429,
				"message":     fmt.Sprintf("操作过于频繁，请 %.0f 秒后重试", result.RetryAfter.Seconds()),
				"retry_after": result.RetryAfter.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
