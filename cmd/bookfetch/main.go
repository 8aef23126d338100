package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/BookFetch/internal/config"
	"github.com/RecoveryAshes/BookFetch/internal/core"
	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 验证配置文件

	// 索引页参数
	indexURL     string
	listSelector string
	limit        int
	strict       bool
	mode         string

	// 下载参数
	itemURL         string
	outputDir       string
	naming          string
	checkStatus     bool
	continueOnError bool
	idsFile         string

	// config init参数
	forceOverwrite bool
)

// appConfig 合并命令行参数后的有效配置, 在PersistentPreRunE中生成
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "bookfetch",
	Short: "公共图书目录排行榜抓取工具",
	Long: `BookFetch - 抓取公共图书目录排行榜并下载正文

从排行榜页面(默认Project Gutenberg top页)解析条目标识,
按顺序下载每个条目的纯文本正文, 写入 book-0, book-1, ...

不带参数运行时使用内置默认值:
  索引页:   ` + core.DefaultIndexURL + `
  条目URL:  ` + core.DefaultItemURLTemplate + `
  输出目录: ` + core.DefaultOutputDir + `

示例:
  # 默认行为
  bookfetch

  # 只取前100个, 按标识命名
  bookfetch --selector "h2#books-last1 + ol" --limit 100 --naming identifier

  # 使用已有的标识列表, 跳过索引页
  bookfetch -f reports/<run_id>/identifiers.txt

  # 只列出标识
  bookfetch list

  # 自定义HTTP头部
  bookfetch -H "User-Agent: MyBot/1.0 (+mailto:me@example.com)"

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd, false)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Ctrl+C在当前条目完成后停止
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		headerManager, err := core.NewHeaderManager(appConfig.Fetch.HeadersFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(headerManager)
		}

		harvester, err := core.NewHarvester(appConfig, headerManager)
		if err != nil {
			return err
		}
		defer harvester.Close()

		if idsFile != "" {
			ids, err := utils.ReadIdentifiersFromFile(idsFile)
			if err != nil {
				return err
			}
			harvester.SetIdentifiers(ids)
		}

		report, err := harvester.Run(ctx)
		if err != nil {
			return fmt.Errorf("抓取失败: %w", err)
		}

		fmt.Printf("下载完成: %d 个文件 -> %s\n", report.Stats.WrittenFiles, appConfig.Output.Dir)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "只列出索引页中的条目标识, 每行一个",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout只输出标识
		return setup(cmd, true)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		headerManager, err := core.NewHeaderManager(appConfig.Fetch.HeadersFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		harvester, err := core.NewHarvester(appConfig, headerManager)
		if err != nil {
			return err
		}
		defer harvester.Close()

		result, err := harvester.List(ctx)
		if result != nil {
			for _, id := range result.Identifiers {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
		}
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置文件管理",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "写出当前有效配置和头部配置模板",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		header := "# bookfetch 配置文件\n# 由 bookfetch config init 生成, 命令行参数优先于本文件\n"
		if err := config.SaveYAML(path, appConfig, header, forceOverwrite); err != nil {
			return err
		}
		utils.Infof("✅ 配置文件已生成: %s", path)

		if err := config.NewHeaderConfigLoader(appConfig.Fetch.HeadersFile).EnsureConfigExists(); err != nil {
			return err
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("BookFetch %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// setup 加载配置, 合并命令行参数并初始化日志
func setup(cmd *cobra.Command, quiet bool) error {
	cfg, err := core.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	overrides, err := buildOverrides(cmd)
	if err != nil {
		return err
	}
	cfg.MergeCLIFlags(overrides)

	logConfig := cfg.GetLogConfig()
	logConfig.Quiet = quiet
	if verbose && logLevel == "" {
		logConfig.Level = "debug"
	}
	if err := utils.InitLogger(logConfig); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}

	if cfg.FileUsed() != "" {
		utils.Debugf("使用配置文件: %s", cfg.FileUsed())
	}
	if verbose {
		utils.Info("详细模式已启用")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	appConfig = cfg
	return nil
}

// runValidateConfig 验证配置并显示有效的HTTP头部
func runValidateConfig(headerManager *core.HeaderManager) error {
	utils.Info("🔍 验证配置...")
	if err := headerManager.LoadConfig(); err != nil {
		return fmt.Errorf("加载头部配置失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("头部配置验证失败: %w", err)
	}

	harvest := appConfig.GetHarvestConfig()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("索引页: %s (%s)", harvest.IndexURL, harvest.Mode)
	utils.Infof("条目URL: %s", harvest.ItemURLTemplate)
	utils.Infof("输出目录: %s (命名: %s)", harvest.OutputDir, harvest.Naming)
	utils.Infof("当前有效的HTTP头部: %s", headerManager.GetSafeHeaders())
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认搜索 ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 索引页参数 (list子命令共用)
	rootCmd.PersistentFlags().StringVarP(&indexURL, "index-url", "u", core.DefaultIndexURL, "排行榜页面URL")
	rootCmd.PersistentFlags().StringVar(&listSelector, "selector", "", "列表元素CSS选择器 (默认第一个<ol>)")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 0, "最多取多少个标识 (0为不限)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "列表项缺少链接时返回错误")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", string(models.ModeStatic), "索引页获取模式 (static|dynamic)")

	// 下载参数
	rootCmd.Flags().StringVar(&itemURL, "item-url", core.DefaultItemURLTemplate, "条目URL模板, {id}替换为标识")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", core.DefaultOutputDir, "输出目录")
	rootCmd.Flags().StringVar(&naming, "naming", string(models.NamingOrdinal), "文件命名方式 (ordinal|identifier)")
	rootCmd.Flags().BoolVar(&checkStatus, "check-status", false, "非2xx响应视为失败")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "条目失败后继续下一个")
	rootCmd.Flags().StringVarP(&idsFile, "ids-file", "f", "", "标识列表文件, 每行一个 (跳过索引页)")

	configInitCmd.Flags().BoolVar(&forceOverwrite, "force", false, "覆盖已存在的配置文件")

	// 添加子命令
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(listCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
