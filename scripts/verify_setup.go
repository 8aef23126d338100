package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/RecoveryAshes/BookFetch/internal/core"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"github.com/go-rod/rod/lib/launcher"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  BookFetch 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	fmt.Printf("✅ Go版本: %s\n", runtime.Version())
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 配置文件
	cfg, err := core.LoadConfig("")
	if err != nil {
		fmt.Printf("❌ 配置文件无效: %v\n", err)
		allOK = false
		cfg = core.DefaultConfig()
	} else if cfg.FileUsed() != "" {
		fmt.Printf("✅ 配置文件: %s\n", cfg.FileUsed())
	} else {
		fmt.Println("⚠️  未找到配置文件, 使用默认值 (可运行 'bookfetch config init' 生成)")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ 配置验证失败: %v\n", err)
		allOK = false
	}

	// 浏览器 (dynamic模式需要)
	if path, has := launcher.LookPath(); has {
		fmt.Printf("✅ 浏览器: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到Chrome/Chromium - dynamic模式首次运行时会自动下载")
	}

	// 输出目录
	fmt.Println()
	fmt.Println("检查输出目录...")
	if info, err := os.Stat(cfg.Output.Dir); err == nil && info.IsDir() {
		fmt.Printf("✅ %s\n", cfg.Output.Dir)
	} else if cfg.Output.CreateDir {
		fmt.Printf("⚠️  %s 不存在, 运行时会自动创建 (output.create_dir)\n", cfg.Output.Dir)
	} else {
		fmt.Printf("❌ %s 不存在 - 请先创建, 或设置 output.create_dir: true\n", cfg.Output.Dir)
		allOK = false
	}

	if status, err := utils.GetDiskStatus(cfg.Output.Dir); err == nil {
		fmt.Printf("✅ 可用空间: %.1f MB (%s)\n", float64(status.Free)/(1024*1024), status.Path)
		if err := utils.EnsureFreeSpace(cfg.Output.Dir, cfg.Output.MinFreeMB); err != nil {
			fmt.Printf("❌ %v\n", err)
			allOK = false
		}
	} else {
		fmt.Printf("⚠️  无法获取磁盘信息: %v\n", err)
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build -o bookfetch ./cmd/bookfetch' 构建")
		fmt.Println("  2. 运行 './bookfetch list' 检查索引页解析")
		fmt.Println("  3. 运行 './bookfetch' 下载")
		os.Exit(0)
	} else {
		fmt.Println("❌ 环境验证失败,请解决上述问题。")
		os.Exit(1)
	}
}
