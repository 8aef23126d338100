package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/RecoveryAshes/BookFetch/internal/models"
)

// ReadIdentifiersFromFile 从文件中读取标识列表
// 每行一个标识, 空行和#开头的注释行被跳过, 顺序与文件中一致
func ReadIdentifiersFromFile(filepath string) (models.IdentifierList, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开标识文件失败: %w", err)
	}
	defer file.Close()

	ids := make(models.IdentifierList, 0)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// 跳过空行和注释行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// 标识会被直接拼进URL路径和文件名
		if strings.ContainsAny(line, "/\\ \t?#") {
			Warnf("跳过无效标识 (行 %d): %q", lineNum, line)
			continue
		}

		ids = append(ids, models.Identifier(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取标识文件失败: %w", err)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("标识文件中没有有效的标识")
	}

	Infof("从文件加载了 %d 个标识", len(ids))
	return ids, nil
}
