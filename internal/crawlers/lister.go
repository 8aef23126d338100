package crawlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

const (
	// DefaultListSelector 未配置选择器时使用文档中第一个有序列表
	DefaultListSelector = "ol"

	// maxProblemText 问题记录中列表项文本的最大长度
	maxProblemText = 80
)

// ListerConfig 标识列表器配置
type ListerConfig struct {
	IndexURL     string // 排行榜页面URL
	ListSelector string // 列表元素CSS选择器, 为空时取第一个<ol>
	Limit        int    // 最多返回的标识数, 0为不限
	Strict       bool   // 跳过的列表项作为错误返回
}

// ListResult 一次列表的详细结果
type ListResult struct {
	Identifiers models.IdentifierList
	StatusCode  int              // 索引页状态码
	Skipped     *ExtractionError // 被跳过的列表项, 可能为nil
}

// IdentifierLister 从排行榜页面提取条目标识
type IdentifierLister struct {
	fetcher PageFetcher
	config  ListerConfig
}

// NewIdentifierLister 创建标识列表器
func NewIdentifierLister(fetcher PageFetcher, config ListerConfig) *IdentifierLister {
	return &IdentifierLister{
		fetcher: fetcher,
		config:  config,
	}
}

// ListTopIdentifiers 获取索引页并按文档顺序返回标识列表
//
// 索引页返回非2xx时记录警告并返回空列表(不是错误)。
// 传输层错误和找不到列表元素(ErrListNotFound)作为错误返回。
func (l *IdentifierLister) ListTopIdentifiers(ctx context.Context) (models.IdentifierList, error) {
	result, err := l.List(ctx)
	if result == nil {
		return nil, err
	}
	return result.Identifiers, err
}

// List 与ListTopIdentifiers相同, 额外返回状态码和跳过的列表项
func (l *IdentifierLister) List(ctx context.Context) (*ListResult, error) {
	utils.Infof("📑 获取索引页: %s", l.config.IndexURL)

	page, err := l.fetcher.Fetch(ctx, l.config.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("获取索引页失败: %w", err)
	}

	result := &ListResult{
		Identifiers: models.IdentifierList{},
		StatusCode:  page.StatusCode,
	}

	if !page.IsSuccess() {
		utils.Warnf("⚠️  索引页返回 HTTP %d, 标识列表为空: %s", page.StatusCode, l.config.IndexURL)
		return result, nil
	}

	ids, parseErr := ParseIdentifiers(page.Body, l.config.ListSelector)

	var extractionErr *ExtractionError
	if parseErr != nil && !errors.As(parseErr, &extractionErr) {
		return nil, parseErr
	}

	if l.config.Limit > 0 && len(ids) > l.config.Limit {
		utils.Debugf("标识列表截断: %d -> %d", len(ids), l.config.Limit)
		ids = ids[:l.config.Limit]
	}
	result.Identifiers = ids
	result.Skipped = extractionErr

	utils.Infof("解析出 %d 个标识", len(ids))

	if extractionErr != nil {
		if l.config.Strict {
			return result, extractionErr
		}
		utils.Warnf("⚠️  %v (已跳过)", extractionErr)
	}

	return result, nil
}

// ParseIdentifiers 从HTML正文中提取标识
//
// selector为空时选择文档中第一个<ol>, 否则选择selector的第一个匹配。
// 每个直接<li>子元素取第一个带href的<a>, 以链接路径最后一段作为标识。
// 没有链接的列表项被跳过, 汇总到返回的*ExtractionError中, 同时仍返回有效的标识。
func ParseIdentifiers(body []byte, selector string) (models.IdentifierList, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	if selector == "" {
		selector = DefaultListSelector
	}

	list, err := selectFirst(doc, selector)
	if err != nil {
		return nil, err
	}

	ids := make(models.IdentifierList, 0)
	var problems []ItemProblem

	list.ChildrenFiltered("li").Each(func(i int, item *goquery.Selection) {
		href, ok := item.Find("a[href]").First().Attr("href")
		if !ok {
			problems = append(problems, ItemProblem{
				Index:  i,
				Reason: "列表项中没有超链接",
				Text:   truncateText(item.Text()),
			})
			return
		}

		id := identifierFromHref(href)
		if id == "" {
			problems = append(problems, ItemProblem{
				Index:  i,
				Reason: fmt.Sprintf("链接没有可用的路径段: %q", href),
				Text:   truncateText(item.Text()),
			})
			return
		}

		ids = append(ids, id)
	})

	if len(problems) > 0 {
		return ids, &ExtractionError{Problems: problems}
	}
	return ids, nil
}

// selectFirst 返回selector在文档中的第一个匹配
func selectFirst(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	// goquery对非法选择器静默返回空集, 这里先编译以区分两种情况
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("无效的列表选择器 %q: %w", selector, err)
	}

	sel := doc.FindMatcher(matcher).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w (选择器: %s)", ErrListNotFound, selector)
	}
	return sel, nil
}

// ValidateSelector 检查CSS选择器能否编译
func ValidateSelector(selector string) error {
	if selector == "" {
		return nil
	}
	if _, err := cascadia.Compile(selector); err != nil {
		return fmt.Errorf("无效的列表选择器 %q: %w", selector, err)
	}
	return nil
}

// identifierFromHref 取链接路径的最后一段
// 查询串和片段被去掉, 末尾的斜杠被忽略
func identifierFromHref(href string) models.Identifier {
	path := strings.TrimSpace(href)
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return models.Identifier(path)
}

// truncateText 压缩空白并截断文本
func truncateText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) > maxProblemText {
		return string([]rune(s)[:maxProblemText]) + "..."
	}
	return s
}
