package crawlers

import (
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// Page 一次GET请求的结果
type Page struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess 状态码是否为2xx
func (p *Page) IsSuccess() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// PageFetcher 页面获取器
// 只有传输层错误(DNS、连接、超时、取消)才返回error, 非2xx响应照常返回Page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// StaticFetcherConfig 静态获取器配置
type StaticFetcherConfig struct {
	Timeout     time.Duration // 单次请求超时
	MaxBodySize int           // 响应体上限(字节), 0为不限
}

// StaticFetcher 静态获取器(使用Colly)
type StaticFetcher struct {
	collector      *colly.Collector
	headerProvider models.HeaderProvider
	maxBodySize    int
}

// NewStaticFetcher 创建静态获取器
func NewStaticFetcher(config StaticFetcherConfig, headerProvider models.HeaderProvider) *StaticFetcher {
	// Colly超过上限时静默截断, 多读1字节用于识别超限
	readLimit := 0
	if config.MaxBodySize > 0 {
		readLimit = config.MaxBodySize + 1
	}

	// 同步模式: 条目按顺序逐个下载
	c := colly.NewCollector(
		colly.ParseHTTPErrorResponse(),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(readLimit),
	)

	if config.Timeout > 0 {
		c.SetRequestTimeout(config.Timeout)
	}

	utils.Debugf("静态获取器: 超时 %v, 响应体上限 %d 字节", config.Timeout, config.MaxBodySize)

	return &StaticFetcher{
		collector:      c,
		headerProvider: headerProvider,
		maxBodySize:    config.MaxBodySize,
	}
}

// Fetch 获取单个URL
func (sf *StaticFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 每次请求使用独立的collector副本, 回调不会在请求之间累积
	c := sf.collector.Clone()
	c.Context = ctx

	var page *Page
	var headerErr, bodyErr error

	c.OnRequest(func(r *colly.Request) {
		if sf.headerProvider == nil {
			return
		}
		headers, err := sf.headerProvider.GetHeaders()
		if err != nil {
			headerErr = err
			r.Abort()
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
		utils.Debugf("请求: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		if sf.maxBodySize > 0 && len(r.Body) > sf.maxBodySize {
			bodyErr = fmt.Errorf("%w: 超过 %d 字节", ErrBodyTooLarge, sf.maxBodySize)
			return
		}

		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}

		body := r.Body
		contentEncoding := ""
		if headers != nil {
			contentEncoding = headers.Get("Content-Encoding")
		}
		if decoded, err := decompressResponse(contentEncoding, body); err != nil {
			utils.Warnf("解压响应失败 [%s] (编码=%s): %v", r.Request.URL, contentEncoding, err)
		} else {
			body = decoded
		}

		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       body,
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		utils.Debugf("请求失败 [%s]: %v", r.Request.URL, err)
	})

	if err := c.Visit(url); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("请求失败 [%s]: %w", url, err)
	}
	if headerErr != nil {
		return nil, fmt.Errorf("获取HTTP头部失败: %w", headerErr)
	}
	if bodyErr != nil {
		return nil, fmt.Errorf("响应体过大 [%s]: %w", url, bodyErr)
	}
	if page == nil {
		return nil, fmt.Errorf("请求未产生响应 [%s]", url)
	}

	utils.Debugf("响应: %s (HTTP %d, %d bytes)", page.URL, page.StatusCode, len(page.Body))
	return page, nil
}

// decompressResponse 根据Content-Encoding头部解压响应体
// gzip已由Colly解压, 这里只处理 deflate 和 br (Brotli)
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity", "gzip":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
