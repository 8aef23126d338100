package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultHeadersFile 默认头部配置文件路径
	DefaultHeadersFile = "configs/headers.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed headers_template.yaml
var defaultHeaderTemplate string

// HeaderTemplate 返回头部配置模板内容
func HeaderTemplate() string {
	return defaultHeaderTemplate
}

// HeaderConfigLoader 头部配置文件加载器
// 索引页和条目请求共用同一组头部, 文件不存在时写出带注释的模板
type HeaderConfigLoader struct {
	configPath string
}

// NewHeaderConfigLoader 创建头部配置文件加载器
func NewHeaderConfigLoader(configPath string) *HeaderConfigLoader {
	if configPath == "" {
		configPath = DefaultHeadersFile
	}
	return &HeaderConfigLoader{
		configPath: configPath,
	}
}

// Path 返回配置文件路径
func (hcl *HeaderConfigLoader) Path() string {
	return hcl.configPath
}

// EnsureConfigExists 文件不存在时写出模板
func (hcl *HeaderConfigLoader) EnsureConfigExists() error {
	created, err := WriteFileIfMissing(hcl.configPath, []byte(defaultHeaderTemplate))
	if err != nil {
		return err
	}
	if created {
		utils.Infof("已生成头部配置模板: %s", hcl.configPath)
	}
	return nil
}

// LoadConfig 加载配置文件并解析为HeaderConfig
// 超过MaxConfigFileSize或解析失败时返回*models.ConfigError
func (hcl *HeaderConfigLoader) LoadConfig() (*models.HeaderConfig, error) {
	if err := hcl.EnsureConfigExists(); err != nil {
		return nil, err
	}

	if err := ValidateFileSize(hcl.configPath); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(hcl.configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// 文件被其他进程锁定时使用默认头部
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("配置文件被锁定 [%s], 使用默认头部", hcl.configPath)
			return &models.HeaderConfig{Headers: make(map[string]string)}, nil
		}

		return nil, &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    err,
		}
	}

	var headerConfig models.HeaderConfig
	if err := v.Unmarshal(&headerConfig); err != nil {
		return nil, &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}

	if headerConfig.Headers == nil {
		headerConfig.Headers = make(map[string]string)
	}

	return &headerConfig, nil
}

// ValidateFileSize 验证配置文件大小是否在限制内
func ValidateFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("无法读取配置文件信息 [%s]: %w", path, err)
	}

	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: path,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}
	return nil
}
