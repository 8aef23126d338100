package crawlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RecoveryAshes/BookFetch/internal/models"
)

var (
	// ErrListNotFound 索引页中找不到目标列表元素
	ErrListNotFound = errors.New("索引页中找不到列表元素")

	// ErrUnexpectedStatus 开启状态码检查时收到非2xx响应
	ErrUnexpectedStatus = errors.New("非预期的HTTP状态码")

	// ErrBodyTooLarge 响应体超过 fetch.max_body_mb
	ErrBodyTooLarge = errors.New("响应体超过大小上限")
)

// ItemProblem 单个列表项的解析问题
type ItemProblem struct {
	Index  int    // 在列表中的序号(从0开始)
	Reason string // 问题描述
	Text   string // 列表项文本(截断)
}

// ExtractionError 聚合索引页解析时跳过的列表项
type ExtractionError struct {
	Problems []ItemProblem
}

// Error 实现error接口
func (e *ExtractionError) Error() string {
	if len(e.Problems) == 1 {
		p := e.Problems[0]
		return fmt.Sprintf("列表项 %d 解析失败: %s", p.Index, p.Reason)
	}

	indexes := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		indexes = append(indexes, fmt.Sprintf("%d", p.Index))
	}
	return fmt.Sprintf("%d 个列表项解析失败 (序号: %s)", len(e.Problems), strings.Join(indexes, ", "))
}

// Item operation
const (
	OpFetch = "fetch"
	OpWrite = "write"
)

// ItemError 单个条目下载或写入失败
type ItemError struct {
	Position   int
	Identifier models.Identifier
	URL        string
	Op         string // fetch | write
	Err        error
}

// Error 实现error接口
func (e *ItemError) Error() string {
	return fmt.Sprintf("条目 %d (%s) %s 失败: %v", e.Position, e.Identifier, e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *ItemError) Unwrap() error {
	return e.Err
}
