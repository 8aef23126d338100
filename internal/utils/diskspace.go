package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// ErrInsufficientDiskSpace 输出卷可用空间不足
var ErrInsufficientDiskSpace = errors.New("磁盘可用空间不足")

// DiskStatus 输出卷状态
type DiskStatus struct {
	Path   string // 实际检查的路径(最近的已存在祖先目录)
	Free   uint64 // 可用字节
	Total  uint64 // 总字节
	UsedPc float64
}

// GetDiskStatus 获取路径所在卷的空间信息
// 路径不存在时向上查找最近的已存在目录
func GetDiskStatus(path string) (DiskStatus, error) {
	target, err := existingAncestor(path)
	if err != nil {
		return DiskStatus{}, err
	}

	usage, err := disk.Usage(target)
	if err != nil {
		return DiskStatus{}, fmt.Errorf("获取磁盘信息失败 [%s]: %w", target, err)
	}

	return DiskStatus{
		Path:   target,
		Free:   usage.Free,
		Total:  usage.Total,
		UsedPc: usage.UsedPercent,
	}, nil
}

// EnsureFreeSpace 检查输出卷至少有minFreeMB可用空间
// minFreeMB<=0 时不检查
func EnsureFreeSpace(path string, minFreeMB int) error {
	if minFreeMB <= 0 {
		return nil
	}

	status, err := GetDiskStatus(path)
	if err != nil {
		return err
	}

	required := uint64(minFreeMB) * 1024 * 1024
	Debugf("磁盘空间: %s 可用 %.1f MB / 共 %.1f MB", status.Path,
		float64(status.Free)/(1024*1024), float64(status.Total)/(1024*1024))

	if status.Free < required {
		return fmt.Errorf("%w: %s 可用 %d MB, 需要 %d MB",
			ErrInsufficientDiskSpace, status.Path, status.Free/(1024*1024), minFreeMB)
	}
	return nil
}

// existingAncestor 返回path自身或最近的已存在祖先
func existingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("解析路径失败 [%s]: %w", path, err)
	}

	for {
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("找不到已存在的目录: %s", path)
		}
		abs = parent
	}
}
