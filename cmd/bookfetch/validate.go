package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/BookFetch/internal/core"
	"github.com/RecoveryAshes/BookFetch/internal/crawlers"
	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/spf13/pflag"
)

// buildOverrides 收集命令行上显式设置的参数
// 未设置的参数不覆盖配置文件
func buildOverrides(cmd interface{ Flags() *pflag.FlagSet }) (core.CLIOverrides, error) {
	flags := cmd.Flags()
	var o core.CLIOverrides

	if flags.Changed("index-url") {
		normalized, err := NormalizeURL(indexURL)
		if err != nil {
			return o, fmt.Errorf("无效的索引页URL: %w", err)
		}
		o.IndexURL = &normalized
	}
	if flags.Changed("item-url") {
		o.ItemURLTemplate = &itemURL
	}
	if flags.Changed("selector") {
		o.ListSelector = &listSelector
	}
	if flags.Changed("limit") {
		o.Limit = &limit
	}
	if flags.Changed("output") {
		o.OutputDir = &outputDir
	}
	if flags.Changed("naming") {
		o.Naming = &naming
	}
	if flags.Changed("mode") {
		o.Mode = &mode
	}
	if flags.Changed("check-status") {
		o.CheckStatus = &checkStatus
	}
	if flags.Changed("continue-on-error") {
		o.ContinueOnError = &continueOnError
	}
	if flags.Changed("strict") {
		o.Strict = &strict
	}
	if flags.Changed("log-level") {
		o.LogLevel = &logLevel
	}

	if err := ValidateFlags(o); err != nil {
		return o, err
	}
	return o, nil
}

// ValidateFlags 验证命令行标志
// 完整的配置验证在合并后由Config.Validate完成, 这里只给出指向参数名的错误
func ValidateFlags(o core.CLIOverrides) error {
	if o.ItemURLTemplate != nil {
		if err := models.ValidateItemTemplate(*o.ItemURLTemplate); err != nil {
			return fmt.Errorf("--item-url: %w", err)
		}
	}

	if o.ListSelector != nil && *o.ListSelector != "" {
		if err := crawlers.ValidateSelector(*o.ListSelector); err != nil {
			return fmt.Errorf("--selector: %w", err)
		}
	}

	if o.Limit != nil && *o.Limit < 0 {
		return fmt.Errorf("--limit 不能为负数,当前值: %d", *o.Limit)
	}

	if o.Naming != nil && !models.NamingMode(*o.Naming).IsValid() {
		return fmt.Errorf("无效的命名方式: %s (有效值: ordinal, identifier)", *o.Naming)
	}

	if o.Mode != nil {
		validModes := map[string]bool{
			string(models.ModeStatic):  true,
			string(models.ModeDynamic): true,
		}
		if !validModes[*o.Mode] {
			return fmt.Errorf("无效的获取模式: %s (有效值: static, dynamic)", *o.Mode)
		}
	}

	if o.OutputDir != nil && strings.TrimSpace(*o.OutputDir) == "" {
		return fmt.Errorf("--output 不能为空")
	}

	return nil
}

// NormalizeURL 规范化URL
func NormalizeURL(urlStr string) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	// 如果没有协议,默认使用https
	if parsed.Scheme == "" {
		urlStr = "https://" + urlStr
		parsed, err = url.Parse(urlStr)
		if err != nil {
			return "", err
		}
	}

	if err := models.ValidateURL(parsed.String()); err != nil {
		return "", err
	}
	return parsed.String(), nil
}
