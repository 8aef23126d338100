package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/schollz/progressbar/v3"
)

const (
	// ReportFileName 主报告文件名
	ReportFileName = "harvest_report.json"
	// FailedItemsFileName 失败条目文件名
	FailedItemsFileName = "failed_items.json"
	// IdentifiersFileName 标识列表文件名, 格式与 --ids-file 相同
	IdentifiersFileName = "identifiers.txt"
)

// Reporter 报告生成器
type Reporter struct {
	reportDir string
}

// NewReporter 创建报告生成器
func NewReporter(reportDir string) *Reporter {
	return &Reporter{
		reportDir: reportDir,
	}
}

// GenerateReport 写出运行报告
// 报告把每个 book-<序号> 文件追溯回标识和来源URL
func (r *Reporter) GenerateReport(report *models.HarvestReport) error {
	runDir := filepath.Join(r.reportDir, report.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	if err := r.saveJSONReport(runDir, ReportFileName, report); err != nil {
		return err
	}

	if len(report.FailedItems) > 0 {
		if err := r.saveJSONReport(runDir, FailedItemsFileName, report.FailedItems); err != nil {
			return err
		}
	}

	if err := r.saveIdentifiers(runDir, report.Identifiers); err != nil {
		return err
	}

	Infof("✅ 报告已生成: %s", runDir)
	return nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(dir string, filename string, data interface{}) error {
	path := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// saveIdentifiers 保存标识列表, 可直接作为 --ids-file 重新下载
func (r *Reporter) saveIdentifiers(dir string, ids models.IdentifierList) error {
	content := "# bookfetch identifiers, 按索引页顺序\n"
	if len(ids) > 0 {
		content += strings.Join(ids.Strings(), "\n") + "\n"
	}

	path := filepath.Join(dir, IdentifiersFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("写入标识列表失败: %w", err)
	}
	return nil
}

// NewProgressBar 创建进度条
// visible为false时进度条不输出任何内容
func NewProgressBar(max int, description string, out io.Writer, visible bool) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
