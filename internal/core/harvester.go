package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/RecoveryAshes/BookFetch/internal/crawlers"
	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
)

// Harvester 主流程协调器
// 数据单向流动: 索引页 → 标识列表 → 下载器 → 报告
type Harvester struct {
	config  *Config
	harvest models.HarvestConfig

	// HTTP头部提供者
	headerProvider models.HeaderProvider

	// 预置标识列表 (--ids-file), 非空时跳过索引页
	presetIDs models.IdentifierList

	// 获取器实例, 索引页在dynamic模式下使用浏览器
	indexFetcher crawlers.PageFetcher
	itemFetcher  crawlers.PageFetcher
	closers      []io.Closer

	// ProgressOutput 进度条输出, 为空时使用os.Stderr
	ProgressOutput io.Writer
}

// NewHarvester 创建主流程协调器
func NewHarvester(config *Config, headerProvider models.HeaderProvider) (*Harvester, error) {
	harvest := config.GetHarvestConfig()
	if err := harvest.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}

	static := crawlers.NewStaticFetcher(crawlers.StaticFetcherConfig{
		Timeout:     config.Timeout(),
		MaxBodySize: harvest.MaxBodyMB * 1024 * 1024,
	}, headerProvider)

	h := &Harvester{
		config:         config,
		harvest:        harvest,
		headerProvider: headerProvider,
		indexFetcher:   static,
		itemFetcher:    static,
	}

	if harvest.Mode == models.ModeDynamic {
		dynamic := crawlers.NewDynamicFetcher(crawlers.DynamicFetcherConfig{
			Headless: harvest.Headless,
			Timeout:  config.Timeout(),
		}, headerProvider)
		h.indexFetcher = dynamic
		h.closers = append(h.closers, dynamic)
	}

	return h, nil
}

// SetIdentifiers 使用预置标识列表代替索引页
func (h *Harvester) SetIdentifiers(ids models.IdentifierList) {
	h.presetIDs = ids
}

// List 只获取索引页并解析标识, 不下载
func (h *Harvester) List(ctx context.Context) (*crawlers.ListResult, error) {
	lister := crawlers.NewIdentifierLister(h.indexFetcher, crawlers.ListerConfig{
		IndexURL:     h.harvest.IndexURL,
		ListSelector: h.harvest.ListSelector,
		Limit:        h.harvest.Limit,
		Strict:       h.harvest.Strict,
	})
	return lister.List(ctx)
}

// Run 执行完整流程
// 执行流程:
//  1. 获取标识列表 (索引页或预置列表)
//  2. 按顺序下载全部条目
//  3. 汇总统计并生成报告
//
// 返回的报告在出错时也不为nil
func (h *Harvester) Run(ctx context.Context) (*models.HarvestReport, error) {
	report := models.NewHarvestReport(h.harvest)
	utils.SetRunID(report.RunID)
	defer utils.SetRunID("")

	utils.Infof("🚀 开始抓取任务 (run_id=%s)", report.RunID)
	utils.Infof("索引页: %s", h.harvest.IndexURL)
	utils.Infof("获取模式: %s", h.harvest.Mode)
	utils.Infof("输出目录: %s", h.harvest.OutputDir)

	err := h.run(ctx, report)
	report.Finish(err)

	if h.config.Report.Enabled {
		reporter := utils.NewReporter(h.config.Report.Dir)
		if reportErr := reporter.GenerateReport(report); reportErr != nil {
			utils.Warnf("生成报告失败: %v", reportErr)
		}
	}

	h.printSummary(report, err)
	return report, err
}

func (h *Harvester) run(ctx context.Context, report *models.HarvestReport) error {
	ids, err := h.resolveIdentifiers(ctx, report)
	if err != nil {
		return err
	}
	report.Identifiers = ids

	downloader, err := crawlers.NewBookDownloader(h.itemFetcher, crawlers.DownloaderConfig{
		ItemURLTemplate: h.harvest.ItemURLTemplate,
		Naming:          h.harvest.Naming,
		Encoding:        h.harvest.Encoding,
		CheckStatus:     h.harvest.CheckStatus,
		ContinueOnError: h.harvest.ContinueOnError,
		CreateDir:       h.harvest.CreateDir,
		MinFreeMB:       h.harvest.MinFreeMB,
		Progress:        h.harvest.Progress,
		ProgressOutput:  h.ProgressOutput,
	})
	if err != nil {
		return fmt.Errorf("创建下载器失败: %w", err)
	}

	written, err := downloader.DownloadAll(ctx, ids, h.harvest.OutputDir)

	report.Files = downloader.Files()
	if failed := downloader.FailedItems(); failed != nil {
		report.FailedItems = failed
	}
	h.collectStats(report, written)

	return err
}

// resolveIdentifiers 返回本次要下载的标识列表
func (h *Harvester) resolveIdentifiers(ctx context.Context, report *models.HarvestReport) (models.IdentifierList, error) {
	if len(h.presetIDs) > 0 {
		utils.Infof("使用预置标识列表: %d 个", len(h.presetIDs))
		report.Stats.ListedIDs = len(h.presetIDs)
		return h.presetIDs, nil
	}

	result, err := h.List(ctx)
	if result != nil {
		report.Stats.IndexStatus = result.StatusCode
		report.Stats.ListedIDs = len(result.Identifiers)
		if result.Skipped != nil {
			report.Stats.SkippedItems = len(result.Skipped.Problems)
		}
		if result.StatusCode != 0 && (result.StatusCode < 200 || result.StatusCode > 299) {
			report.Stats.IndexError = fmt.Sprintf("索引页返回 HTTP %d", result.StatusCode)
		}
	}
	if err != nil {
		report.Stats.IndexError = err.Error()
		if result != nil {
			report.Identifiers = result.Identifiers
		}
		return nil, err
	}
	return result.Identifiers, nil
}

// collectStats 从下载结果汇总统计
func (h *Harvester) collectStats(report *models.HarvestReport, written int) {
	report.Stats.WrittenFiles = written
	report.Stats.FailedItems = len(report.FailedItems)
	for i := range report.Files {
		report.Stats.TotalSize += report.Files[i].Size
		if report.Files[i].IsErrorPage() {
			report.Stats.ErrorPages++
		}
	}
}

// printSummary 打印运行摘要
func (h *Harvester) printSummary(report *models.HarvestReport, err error) {
	utils.Info("==================================================")
	switch report.Status {
	case models.RunStatusCompleted, models.RunStatusEmpty:
		utils.Info("✅ 下载完成")
	case models.RunStatusPartial:
		utils.Warn("⚠️  下载完成, 部分条目失败")
	default:
		utils.Errorf("❌ 下载中止: %v", err)
	}
	utils.Infof("📑 标识数: %d (跳过 %d)", report.Stats.ListedIDs, report.Stats.SkippedItems)
	utils.Infof("📦 写入文件: %d", report.Stats.WrittenFiles)
	utils.Infof("📦 总大小: %.2f MB", float64(report.Stats.TotalSize)/(1024*1024))
	utils.Infof("⏱️  总耗时: %.2f秒", report.Stats.Duration)
	if report.Stats.ErrorPages > 0 {
		utils.Warnf("%d 个文件来自非2xx响应, 内容可能是错误页", report.Stats.ErrorPages)
	}
	if report.Stats.FailedItems > 0 {
		utils.Warn("失败的条目:")
		for _, item := range report.FailedItems {
			utils.Warnf("  - [%d] %s (%s): %s", item.Position, item.Identifier, item.Op, item.ErrorMsg)
		}
	}
	utils.Info("==================================================")
}

// Close 释放浏览器等资源
func (h *Harvester) Close() error {
	var errs []error
	for _, c := range h.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}
