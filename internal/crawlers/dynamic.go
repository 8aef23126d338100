package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DynamicFetcherConfig 动态获取器配置
type DynamicFetcherConfig struct {
	Headless bool          // 无头模式
	Timeout  time.Duration // 单页导航+加载超时
}

// DynamicFetcher 动态获取器(使用go-rod)
// 用于由JavaScript生成排行榜的索引页, 返回渲染后的DOM
type DynamicFetcher struct {
	config         DynamicFetcherConfig
	headerProvider models.HeaderProvider

	browser *rod.Browser
	mu      sync.Mutex
}

// NewDynamicFetcher 创建动态获取器, 浏览器在第一次Fetch时启动
func NewDynamicFetcher(config DynamicFetcherConfig, headerProvider models.HeaderProvider) *DynamicFetcher {
	return &DynamicFetcher{
		config:         config,
		headerProvider: headerProvider,
	}
}

// launchBrowser 启动浏览器
func (df *DynamicFetcher) launchBrowser() (*rod.Browser, error) {
	df.mu.Lock()
	defer df.mu.Unlock()

	if df.browser != nil {
		return df.browser, nil
	}

	l := launcher.New().Headless(df.config.Headless)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)
	df.browser = browser
	return browser, nil
}

// Fetch 在浏览器中打开URL, 等待加载完成后返回渲染后的HTML
// StatusCode取自主文档的网络响应
func (df *DynamicFetcher) Fetch(ctx context.Context, url string) (page *Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("页面获取panic [%s]: %v", url, r)
			utils.Errorf("捕获panic: URL=%s, 错误=%v", url, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := df.launchBrowser()
	if err != nil {
		return nil, err
	}

	tab, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}
	defer tab.Close()

	tab, cancelTimeout := withTimeout(tab, df.config.Timeout)
	defer cancelTimeout()

	if err := df.applyHeaders(tab); err != nil {
		return nil, err
	}

	result := &Page{URL: url}
	waitDocument := tab.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		result.URL = e.Response.URL
		result.StatusCode = e.Response.Status
		result.Headers = make(http.Header, len(e.Response.Headers))
		for name, value := range e.Response.Headers {
			result.Headers.Set(name, value.Str())
		}
		return true
	})

	if err := tab.Navigate(url); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("导航失败 [%s]: %w", url, err)
	}
	waitDocument()

	if err := tab.WaitLoad(); err != nil {
		return nil, fmt.Errorf("等待页面加载失败 [%s]: %w", url, err)
	}

	html, err := tab.HTML()
	if err != nil {
		return nil, fmt.Errorf("读取页面HTML失败 [%s]: %w", url, err)
	}
	result.Body = []byte(html)

	utils.Debugf("页面加载完成: %s (HTTP %d, %d bytes)", result.URL, result.StatusCode, len(result.Body))
	return result, nil
}

// withTimeout 为标签页后续全部操作设置总超时
func withTimeout(tab *rod.Page, d time.Duration) (*rod.Page, func()) {
	if d <= 0 {
		return tab, func() {}
	}
	tab = tab.Timeout(d)
	return tab, func() { tab.CancelTimeout() }
}

// applyHeaders 把合并后的头部设置到标签页的所有请求
func (df *DynamicFetcher) applyHeaders(tab *rod.Page) error {
	if df.headerProvider == nil {
		return nil
	}

	headers, err := df.headerProvider.GetHeaders()
	if err != nil {
		return fmt.Errorf("获取HTTP头部失败: %w", err)
	}

	dict := make([]string, 0, len(headers)*2)
	for name, values := range headers {
		// 压缩协商交给浏览器
		if len(values) == 0 || http.CanonicalHeaderKey(name) == "Accept-Encoding" {
			continue
		}
		dict = append(dict, name, values[0])
	}
	if len(dict) == 0 {
		return nil
	}

	if _, err := tab.SetExtraHeaders(dict); err != nil {
		return fmt.Errorf("设置HTTP头部失败: %w", err)
	}
	return nil
}

// Close 关闭浏览器
func (df *DynamicFetcher) Close() error {
	df.mu.Lock()
	defer df.mu.Unlock()

	if df.browser == nil {
		return nil
	}
	err := df.browser.Close()
	df.browser = nil
	utils.Debugf("浏览器已关闭")
	return err
}
