package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultIndexURL 默认排行榜页面
	DefaultIndexURL = "https://www.gutenberg.org/browse/scores/top"
	// DefaultItemURLTemplate 默认条目正文URL模板
	DefaultItemURLTemplate = "https://www.gutenberg.org/cache/epub/{id}/pg{id}.txt"
	// DefaultOutputDir 默认输出目录
	DefaultOutputDir = "../nfs/nfs-storage/input"
)

// Config 应用程序配置
type Config struct {
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`

	file string // 实际读取的配置文件, 未找到时为空
}

// SourceConfig 索引页配置
type SourceConfig struct {
	IndexURL     string `mapstructure:"index_url" yaml:"index_url"`
	ListSelector string `mapstructure:"list_selector" yaml:"list_selector"`
	Limit        int    `mapstructure:"limit" yaml:"limit"`
	Strict       bool   `mapstructure:"strict" yaml:"strict"`
	Mode         string `mapstructure:"mode" yaml:"mode"`
	Headless     bool   `mapstructure:"headless" yaml:"headless"`
}

// FetchConfig 请求配置
type FetchConfig struct {
	ItemURLTemplate string `mapstructure:"item_url_template" yaml:"item_url_template"`
	CheckStatus     bool   `mapstructure:"check_status" yaml:"check_status"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxBodyMB       int    `mapstructure:"max_body_mb" yaml:"max_body_mb"`
	HeadersFile     string `mapstructure:"headers_file" yaml:"headers_file"`
}

// DownloadConfig 下载配置
type DownloadConfig struct {
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	Naming    string `mapstructure:"naming" yaml:"naming"`
	Encoding  string `mapstructure:"encoding" yaml:"encoding"`
	CreateDir bool   `mapstructure:"create_dir" yaml:"create_dir"`
	MinFreeMB int    `mapstructure:"min_free_mb" yaml:"min_free_mb"`
	Progress  bool   `mapstructure:"progress" yaml:"progress"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level" yaml:"level"`
	LogDir   string         `mapstructure:"log_dir" yaml:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ReportConfig 运行报告配置
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configPath != "" {
		// 使用指定的配置文件
		v.SetConfigFile(configPath)
	} else {
		// 搜索默认位置
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		// 用户主目录
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".bookfetch"))
		}
	}

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值, 显式指定的文件必须存在
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置文件失败: %w", err)}
	}
	config.file = v.ConfigFileUsed()

	return &config, nil
}

// DefaultConfig 返回只包含默认值的配置
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// 默认值全部为基本类型, 不会解析失败
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 索引页
	v.SetDefault("source.index_url", DefaultIndexURL)
	v.SetDefault("source.list_selector", "")
	v.SetDefault("source.limit", 0)
	v.SetDefault("source.strict", false)
	v.SetDefault("source.mode", string(models.ModeStatic))
	v.SetDefault("source.headless", true)

	// 请求
	v.SetDefault("fetch.item_url_template", DefaultItemURLTemplate)
	v.SetDefault("fetch.check_status", false)
	v.SetDefault("fetch.timeout_sec", 30)
	v.SetDefault("fetch.max_body_mb", 50)
	v.SetDefault("fetch.headers_file", "configs/headers.yaml")

	// 下载
	v.SetDefault("download.continue_on_error", false)

	// 输出
	v.SetDefault("output.dir", DefaultOutputDir)
	v.SetDefault("output.naming", string(models.NamingOrdinal))
	v.SetDefault("output.encoding", "utf-8")
	v.SetDefault("output.create_dir", false)
	v.SetDefault("output.min_free_mb", 0)
	v.SetDefault("output.progress", true)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 报告
	v.SetDefault("report.enabled", true)
	v.SetDefault("report.dir", "reports")
}

// FileUsed 返回实际读取的配置文件路径
func (c *Config) FileUsed() string {
	return c.file
}

// GetHarvestConfig 从配置中提取抓取配置
func (c *Config) GetHarvestConfig() models.HarvestConfig {
	return models.HarvestConfig{
		IndexURL:        c.Source.IndexURL,
		ListSelector:    c.Source.ListSelector,
		Limit:           c.Source.Limit,
		Strict:          c.Source.Strict,
		Mode:            models.FetchMode(c.Source.Mode),
		Headless:        c.Source.Headless,
		ItemURLTemplate: c.Fetch.ItemURLTemplate,
		CheckStatus:     c.Fetch.CheckStatus,
		ContinueOnError: c.Download.ContinueOnError,
		TimeoutSec:      c.Fetch.TimeoutSec,
		MaxBodyMB:       c.Fetch.MaxBodyMB,
		OutputDir:       c.Output.Dir,
		Naming:          models.NamingMode(c.Output.Naming),
		Encoding:        c.Output.Encoding,
		CreateDir:       c.Output.CreateDir,
		MinFreeMB:       c.Output.MinFreeMB,
		Progress:        c.Output.Progress,
	}
}

// GetLogConfig 从配置中提取日志配置
func (c *Config) GetLogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// Timeout 单次请求超时
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSec) * time.Second
}

// CLIOverrides 命令行参数覆盖项
// 指针为nil表示该参数未在命令行上设置
type CLIOverrides struct {
	IndexURL        *string
	ItemURLTemplate *string
	ListSelector    *string
	Limit           *int
	OutputDir       *string
	Naming          *string
	Mode            *string
	CheckStatus     *bool
	ContinueOnError *bool
	Strict          *bool
	LogLevel        *string
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.IndexURL != nil {
		c.Source.IndexURL = *o.IndexURL
	}
	if o.ItemURLTemplate != nil {
		c.Fetch.ItemURLTemplate = *o.ItemURLTemplate
	}
	if o.ListSelector != nil {
		c.Source.ListSelector = *o.ListSelector
	}
	if o.Limit != nil {
		c.Source.Limit = *o.Limit
	}
	if o.OutputDir != nil {
		c.Output.Dir = *o.OutputDir
	}
	if o.Naming != nil {
		c.Output.Naming = *o.Naming
	}
	if o.Mode != nil {
		c.Source.Mode = *o.Mode
	}
	if o.CheckStatus != nil {
		c.Fetch.CheckStatus = *o.CheckStatus
	}
	if o.ContinueOnError != nil {
		c.Download.ContinueOnError = *o.ContinueOnError
	}
	if o.Strict != nil {
		c.Source.Strict = *o.Strict
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	harvest := c.GetHarvestConfig()
	if err := harvest.Validate(); err != nil {
		return &models.ConfigError{FilePath: c.file, Cause: err}
	}
	if c.Report.Enabled && c.Report.Dir == "" {
		return &models.ConfigError{FilePath: c.file, Cause: fmt.Errorf("report.dir不能为空")}
	}
	return nil
}
