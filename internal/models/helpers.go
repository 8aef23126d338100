package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ValidateURL 验证URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}

// ValidateItemTemplate 验证条目URL模板
// 模板必须包含{id}占位符, 替换后必须是合法的HTTP(S) URL
func ValidateItemTemplate(template string) error {
	if !strings.Contains(template, ItemIDPlaceholder) {
		return fmt.Errorf("条目URL模板缺少占位符 %s: %s", ItemIDPlaceholder, template)
	}
	sample := strings.ReplaceAll(template, ItemIDPlaceholder, "1")
	if err := ValidateURL(sample); err != nil {
		return fmt.Errorf("条目URL模板无效: %w", err)
	}
	return nil
}

// generateID 生成唯一ID
func generateID() string {
	return uuid.New().String()
}
