package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCooldownLimiter_Check(t *testing.T) {
	limiter := &CooldownLimiter{}

	first := limiter.Check("analyze:1.2.3.4", 100*time.Millisecond)
	if !first.Allowed {
		t.Fatal("首次请求应放行")
	}

	second := limiter.Check("analyze:1.2.3.4", 100*time.Millisecond)
	if second.Allowed {
		t.Fatal("冷却期内应拒绝")
	}
	if second.RetryAfter <= 0 || second.RetryAfter > 100*time.Millisecond {
		t.Errorf("剩余冷却时间错误: %v", second.RetryAfter)
	}

	// 不同 key 互不影响
	if !limiter.Check("analyze:5.6.7.8", 100*time.Millisecond).Allowed {
		t.Error("不同客户端不应互相限流")
	}

	time.Sleep(120 * time.Millisecond)
	if !limiter.Check("analyze:1.2.3.4", 100*time.Millisecond).Allowed {
		t.Error("冷却结束后应放行")
	}
}

func TestCooldownLimiter_Reset(t *testing.T) {
	limiter := &CooldownLimiter{}

	limiter.Check("capture:1.1.1.1", time.Minute)
	limiter.Reset("capture:1.1.1.1")

	if !limiter.Check("capture:1.1.1.1", time.Minute).Allowed {
		t.Error("重置后应放行")
	}
}

func TestCooldownMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/analyze", Cooldown(ActionAnalyze, time.Minute), func(c *gin.Context) {
		c.JSON(200, gin.H{"code": 0})
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(); w.Code != 200 {
		t.Fatalf("首次请求应放行: %d", w.Code)
	}
	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("冷却期内应返回 429: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "retry_after") {
		t.Errorf("429 响应应携带剩余冷却时间: %s", w.Body.String())
	}
}
