package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"kfinder_dev_v1_202608/pkg/utils"
)

// ==================== 页面抓取 ====================

// 电商站点对非浏览器 UA 返回空壳页面，统一伪装成桌面 Chrome
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// PageConfig 页面抓取配置
type PageConfig struct {
	Timeout  time.Duration
	ProxyURL string // 为空则直连
	CacheTTL time.Duration // 同一 URL 短时间内重复抓取直接吃缓存，0 表示不缓存
	Debug    bool
}

// FetchError 页面获取失败（网络层或非 2xx）
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("页面获取失败 [%s]: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("页面获取失败 [%s]: HTTP %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PageService 商品页面抓取服务
// 全系统统一的页面请求入口，所有站点共用同一个客户端
type PageService struct {
	client   *resty.Client
	cacheTTL time.Duration
	log      *logrus.Entry
}

// NewPageService 创建页面抓取服务
func NewPageService(cfg *PageConfig) *PageService {
	if cfg.Timeout == 0 {
		// 商品详情页偶尔很慢，给 20s
		cfg.Timeout = 20 * time.Second
	}

	client := resty.New().
		SetDebug(cfg.Debug).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")

	if cfg.ProxyURL != "" {
		client.SetProxy(cfg.ProxyURL)
	}

	return &PageService{
		client:   client,
		cacheTTL: cfg.CacheTTL,
		log:      logrus.WithField("service", "page"),
	}
}

// Fetch 拉取商品页面并解析成 DOM 文档
func (s *PageService) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("URL 为空")}
	}

	if s.cacheTTL > 0 {
		if html, ok := utils.GetCache(pageURL); ok {
			s.log.WithField("url", pageURL).Debug("命中页面缓存")
			return goquery.NewDocumentFromReader(strings.NewReader(html))
		}
	}

	s.log.WithField("url", pageURL).Info("开始抓取页面")

	resp, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &FetchError{URL: pageURL, Status: resp.StatusCode()}
	}

	html := resp.String()
	if s.cacheTTL > 0 {
		utils.SetCache(pageURL, html, s.cacheTTL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("HTML 解析失败: %w", err)}
	}

	return doc, nil
}
