package crawlers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DownloaderConfig 下载器配置
type DownloaderConfig struct {
	ItemURLTemplate string            // 含{id}占位符的条目URL模板
	Naming          models.NamingMode // 输出文件命名方式
	Encoding        string            // 输出文本编码, 为空时使用utf-8
	CheckStatus     bool              // 非2xx视为失败
	ContinueOnError bool              // 失败后继续下一个条目
	CreateDir       bool              // 输出目录不存在时创建
	MinFreeMB       int               // 开始前要求的最小可用空间(MB)
	Progress        bool              // 显示进度条
	ProgressOutput  io.Writer         // 进度条输出, 为空时使用os.Stderr
}

// BookDownloader 按顺序下载条目正文并写入本地文件
type BookDownloader struct {
	fetcher PageFetcher
	config  DownloaderConfig
	encoder *encoding.Encoder // 为nil时按原样写入

	files  []models.BookFile
	failed []models.FailedItemInfo
}

// NewBookDownloader 创建下载器
func NewBookDownloader(fetcher PageFetcher, config DownloaderConfig) (*BookDownloader, error) {
	if err := models.ValidateItemTemplate(config.ItemURLTemplate); err != nil {
		return nil, err
	}
	if config.Naming == "" {
		config.Naming = models.NamingOrdinal
	}
	if !config.Naming.IsValid() {
		return nil, fmt.Errorf("无效的命名方式: %s", config.Naming)
	}

	encoder, err := newEncoder(config.Encoding)
	if err != nil {
		return nil, err
	}

	return &BookDownloader{
		fetcher: fetcher,
		config:  config,
		encoder: encoder,
	}, nil
}

// newEncoder 根据编码名称创建输出编码器
// utf-8时返回nil, 正文(Colly已转为UTF-8)不再经过转换
func newEncoder(name string) (*encoding.Encoder, error) {
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("不支持的输出编码 %q: %w", name, err)
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return nil, nil
	}
	return enc.NewEncoder(), nil
}

// DownloadAll 按顺序下载全部条目, 返回成功写入的文件数
//
// 默认第一次失败即中止, 返回已写入的文件数和*ItemError。
// ContinueOnError时跳过失败的条目, 最后返回所有失败合并后的错误。
// 每个条目之间检查ctx, 取消后在当前条目完成后停止。
func (bd *BookDownloader) DownloadAll(ctx context.Context, ids models.IdentifierList, destDir string) (int, error) {
	bd.files = make([]models.BookFile, 0, len(ids))
	bd.failed = nil

	if err := bd.prepareDir(destDir); err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		utils.Infof("没有需要下载的条目")
		return 0, nil
	}

	out := bd.config.ProgressOutput
	if out == nil {
		out = os.Stderr
	}
	bar := utils.NewProgressBar(len(ids), "📥 下载中", out, bd.config.Progress)
	defer bar.Finish()

	written := 0
	var errs []error

	for position, id := range ids {
		if err := ctx.Err(); err != nil {
			utils.Warnf("下载已取消, 已写入 %d/%d 个文件", written, len(ids))
			errs = append(errs, err)
			break
		}

		if err := bd.downloadOne(ctx, position, id, destDir); err != nil {
			var itemErr *ItemError
			if errors.As(err, &itemErr) {
				bd.failed = append(bd.failed, models.FailedItemInfo{
					Position:   itemErr.Position,
					Identifier: itemErr.Identifier,
					URL:        itemErr.URL,
					Op:         itemErr.Op,
					ErrorMsg:   itemErr.Err.Error(),
				})
			}

			if !bd.config.ContinueOnError {
				utils.Errorf("❌ %v", err)
				return written, err
			}
			utils.Warnf("⚠️  %v (继续下一个)", err)
			errs = append(errs, err)
		} else {
			written++
		}

		_ = bar.Add(1)
	}

	utils.Infof("✅ 下载结束: 写入 %d 个文件, 失败 %d 个", written, len(bd.failed))
	return written, errors.Join(errs...)
}

// prepareDir 检查或创建输出目录, 并检查可用空间
func (bd *BookDownloader) prepareDir(destDir string) error {
	if bd.config.CreateDir {
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	if err := utils.EnsureFreeSpace(destDir, bd.config.MinFreeMB); err != nil {
		return fmt.Errorf("输出目录空间检查失败: %w", err)
	}
	return nil
}

// downloadOne 下载单个条目并写入文件
func (bd *BookDownloader) downloadOne(ctx context.Context, position int, id models.Identifier, destDir string) error {
	itemURL := models.ItemURL(bd.config.ItemURLTemplate, id)

	newItemError := func(op string, err error) *ItemError {
		return &ItemError{
			Position:   position,
			Identifier: id,
			URL:        itemURL,
			Op:         op,
			Err:        err,
		}
	}

	page, err := bd.fetcher.Fetch(ctx, itemURL)
	if err != nil {
		return newItemError(OpFetch, err)
	}

	if !page.IsSuccess() {
		if bd.config.CheckStatus {
			return newItemError(OpFetch, fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, page.StatusCode))
		}
		utils.Debugf("条目 %d (%s) 返回 HTTP %d, 正文照常写入", position, id, page.StatusCode)
	}

	record := models.DownloadRecord{
		Position:   position,
		Identifier: id,
		URL:        itemURL,
		StatusCode: page.StatusCode,
		Body:       page.Body,
	}

	file, err := bd.writeRecord(record, destDir)
	if err != nil {
		return newItemError(OpWrite, err)
	}

	bd.files = append(bd.files, *file)
	utils.Debugf("📄 %s <- %s (%d bytes)", filepath.Base(file.FilePath), itemURL, file.Size)
	return nil
}

// writeRecord 编码正文并覆盖写入目标文件
func (bd *BookDownloader) writeRecord(record models.DownloadRecord, destDir string) (*models.BookFile, error) {
	content := record.Body
	if bd.encoder != nil {
		encoded, err := bd.encoder.Bytes(record.Body)
		if err != nil {
			return nil, fmt.Errorf("编码正文失败: %w", err)
		}
		content = encoded
	}

	filePath := filepath.Join(destDir, bd.config.Naming.FileName(record.Position, record.Identifier))
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}

	file := &models.BookFile{
		Position:     record.Position,
		Identifier:   record.Identifier,
		URL:          record.URL,
		FilePath:     filePath,
		Hash:         calculateHash(content),
		Size:         int64(len(content)),
		StatusCode:   record.StatusCode,
		DownloadedAt: time.Now(),
	}
	if err := file.ValidateSize(); err != nil {
		utils.Warnf("%s: %v", filePath, err)
	}
	return file, nil
}

// Files 返回最近一次DownloadAll写入的文件元数据(按序号排列)
func (bd *BookDownloader) Files() []models.BookFile {
	return bd.files
}

// FailedItems 返回最近一次DownloadAll失败的条目
func (bd *BookDownloader) FailedItems() []models.FailedItemInfo {
	return bd.failed
}

// calculateHash 计算SHA-256哈希
func calculateHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}
