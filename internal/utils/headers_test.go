package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/BookFetch/internal/models"
)

func TestHeaderValidator_ValidateName(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		expectError bool
	}{
		{"合法名称-字母", "User-Agent", false},
		{"合法名称-数字", "X-Request-ID-123", false},
		{"非法名称-空格", "User Agent", true},
		{"非法名称-下划线", "User_Agent", true},
		{"非法名称-空字符串", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateName(tt.headerName)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateHeader(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "User-Agent", "bookfetch/1.0", false},
		{"合法头部-空值", "X-Empty", "", false},
		{"禁止头部-Host", "Host", "gutenberg.org", true},
		{"禁止头部-Range", "Range", "bytes=0-99", true},
		{"禁止头部-不区分大小写", "range", "bytes=0-99", true},
		{"非法值-控制字符", "User-Agent", "value\x00bad", true},
		{"非法值-超长", "X-Long", strings.Repeat("a", MaxHeaderValueLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateHeader(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_Validate(t *testing.T) {
	validator := NewHeaderValidator()

	t.Run("合法的http.Header", func(t *testing.T) {
		headers := http.Header{
			"User-Agent": []string{"Mozilla/5.0"},
			"Accept":     []string{"text/plain"},
		}
		if err := validator.Validate(headers); err != nil {
			t.Errorf("期望无错误, 实际错误=%v", err)
		}
	})

	t.Run("返回ValidationError", func(t *testing.T) {
		headers := http.Header{
			"Host":   []string{"example.com"},
			"Accept": []string{"*/*"},
		}
		err := validator.Validate(headers)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("期望ValidationError, 实际=%v", err)
		}
		if vErr.HeaderName != "Host" {
			t.Errorf("期望HeaderName=Host, 实际=%s", vErr.HeaderName)
		}
	})
}

func TestHeaderRedactor(t *testing.T) {
	redactor := NewHeaderRedactor()

	tests := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{"普通头部不脱敏", "User-Agent", "bookfetch/1.0", "bookfetch/1.0"},
		{"Bearer Token", "Authorization", "Bearer abc.def.ghi", "Bearer ***"},
		{"长密钥保留首尾", "X-API-Key", "1234567890abcdef", "1234***cdef"},
		{"短密钥完全隐藏", "Cookie", "sid=1", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactor.RedactHeaderValue(tt.header, tt.value)
			if got != tt.expected {
				t.Errorf("期望=%q, 实际=%q", tt.expected, got)
			}
		})
	}

	t.Run("RedactToString按名称排序", func(t *testing.T) {
		headers := http.Header{
			"User-Agent":    []string{"bot"},
			"Authorization": []string{"Bearer x"},
		}
		got := redactor.RedactToString(headers)
		want := "Authorization: Bearer ***, User-Agent: bot"
		if got != want {
			t.Errorf("期望=%q, 实际=%q", want, got)
		}
	})
}
