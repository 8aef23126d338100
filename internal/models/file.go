package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// MaxFileSize 单个正文最大大小 50MB
	MaxFileSize = 50 * 1024 * 1024
)

// BookFile 已写入磁盘的正文文件元数据
// 报告通过它把序号文件名追溯回标识和来源URL
type BookFile struct {
	// 标识信息
	Position   int        `json:"position"`   // 在标识列表中的序号
	Identifier Identifier `json:"identifier"` // 条目标识
	URL        string     `json:"url"`        // 来源URL
	FilePath   string     `json:"file_path"`  // 本地存储路径

	// 元数据
	Hash       string `json:"hash"`        // SHA-256哈希值
	Size       int64  `json:"size"`        // 写入字节数
	StatusCode int    `json:"status_code"` // 来源响应的HTTP状态码

	// 时间戳
	DownloadedAt time.Time `json:"downloaded_at"`
}

// IsErrorPage 来源响应是否为非成功状态(正文可能是错误页)
func (f *BookFile) IsErrorPage() bool {
	return f.StatusCode < 200 || f.StatusCode > 299
}

// ValidateSize 验证文件大小
func (f *BookFile) ValidateSize() error {
	if f.Size < 0 {
		return fmt.Errorf("文件大小不能为负数")
	}
	if f.Size > MaxFileSize {
		return fmt.Errorf("文件大小超过限制: %d > %d", f.Size, MaxFileSize)
	}
	return nil
}

// ToJSON 序列化为JSON
func (f *BookFile) ToJSON() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}
