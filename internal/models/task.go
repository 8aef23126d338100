package models

import (
	"fmt"
	"strings"
)

// FetchMode 索引页获取模式
type FetchMode string

const (
	ModeStatic  FetchMode = "static"  // 直接HTTP请求(Colly)
	ModeDynamic FetchMode = "dynamic" // 无头浏览器渲染(Rod)
)

// ItemIDPlaceholder 条目URL模板中的标识占位符
const ItemIDPlaceholder = "{id}"

// RunStatus 运行状态
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed" // 全部条目写入成功
	RunStatusPartial   RunStatus = "partial"   // 部分条目失败(continue_on_error)
	RunStatusFailed    RunStatus = "failed"    // 中止
	RunStatusEmpty     RunStatus = "empty"     // 没有可下载的条目
)

// HarvestStats 运行统计
type HarvestStats struct {
	ListedIDs    int     `json:"listed_ids"`            // 索引页解析出的标识数
	SkippedItems int     `json:"skipped_items"`         // 解析时跳过的列表项
	WrittenFiles int     `json:"written_files"`         // 成功写入的文件数
	FailedItems  int     `json:"failed_items"`          // 下载或写入失败的条目数
	ErrorPages   int     `json:"error_pages"`           // 非2xx但仍写入的正文数
	TotalSize    int64   `json:"total_size"`            // 总写入字节数
	Duration     float64 `json:"duration"`              // 总耗时(秒)
	IndexStatus  int     `json:"index_status"`          // 索引页HTTP状态码
	IndexError   string  `json:"index_error,omitempty"` // 索引页获取或解析错误
}

// HarvestConfig 抓取配置
type HarvestConfig struct {
	// 索引页
	IndexURL     string    `json:"index_url"`     // 排行榜页面URL
	ListSelector string    `json:"list_selector"` // 列表CSS选择器(为空则取第一个<ol>)
	Limit        int       `json:"limit"`         // 最多取多少个标识(0为不限)
	Strict       bool      `json:"strict"`        // 列表项缺少链接时返回错误
	Mode         FetchMode `json:"mode"`          // static | dynamic
	Headless     bool      `json:"headless"`      // dynamic模式下是否无头

	// 条目下载
	ItemURLTemplate string `json:"item_url_template"` // 含{id}占位符
	CheckStatus     bool   `json:"check_status"`      // 非2xx视为失败
	ContinueOnError bool   `json:"continue_on_error"` // 失败后继续下一个
	TimeoutSec      int    `json:"timeout_sec"`       // 单次请求超时(秒)
	MaxBodyMB       int    `json:"max_body_mb"`       // 响应体上限(MB)

	// 输出
	OutputDir string     `json:"output_dir"`  // 输出目录
	Naming    NamingMode `json:"naming"`      // ordinal | identifier
	Encoding  string     `json:"encoding"`    // 输出文本编码
	CreateDir bool       `json:"create_dir"`  // 输出目录不存在时创建
	MinFreeMB int        `json:"min_free_mb"` // 开始前要求的最小可用空间(MB)
	Progress  bool       `json:"progress"`    // 显示进度条
}

// Validate 验证配置
func (c *HarvestConfig) Validate() error {
	if err := ValidateURL(c.IndexURL); err != nil {
		return fmt.Errorf("索引页URL无效: %w", err)
	}
	if err := ValidateItemTemplate(c.ItemURLTemplate); err != nil {
		return err
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit不能为负数")
	}
	if c.Mode != ModeStatic && c.Mode != ModeDynamic {
		return fmt.Errorf("无效的获取模式: %s (有效值: static, dynamic)", c.Mode)
	}
	if c.TimeoutSec < 1 || c.TimeoutSec > 600 {
		return fmt.Errorf("超时时间必须在1-600秒之间")
	}
	if c.MaxBodyMB < 0 {
		return fmt.Errorf("max_body_mb不能为负数")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("输出目录不能为空")
	}
	if !c.Naming.IsValid() {
		return fmt.Errorf("无效的命名方式: %s (有效值: ordinal, identifier)", c.Naming)
	}
	if c.MinFreeMB < 0 {
		return fmt.Errorf("min_free_mb不能为负数")
	}
	return nil
}

// ItemURL 用标识替换模板中的全部占位符
func ItemURL(template string, id Identifier) string {
	return strings.ReplaceAll(template, ItemIDPlaceholder, string(id))
}
