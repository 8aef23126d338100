package models

import "fmt"

// Identifier 目录条目标识 (超链接路径的最后一段, 如 "1342")
type Identifier string

// String 实现fmt.Stringer接口
func (id Identifier) String() string {
	return string(id)
}

// IdentifierList 按索引页文档顺序排列的标识列表
// 只生成一次、消费一次, 空列表也是合法结果
type IdentifierList []Identifier

// Strings 转换为字符串切片
func (l IdentifierList) Strings() []string {
	result := make([]string, 0, len(l))
	for _, id := range l {
		result = append(result, string(id))
	}
	return result
}

// NamingMode 输出文件命名方式
type NamingMode string

const (
	NamingOrdinal    NamingMode = "ordinal"    // book-<序号>
	NamingIdentifier NamingMode = "identifier" // book-<标识>
)

// BookFilePrefix 输出文件名前缀
const BookFilePrefix = "book-"

// IsValid 检查命名方式是否受支持
func (m NamingMode) IsValid() bool {
	return m == NamingOrdinal || m == NamingIdentifier
}

// FileName 根据命名方式生成输出文件名 (无扩展名)
func (m NamingMode) FileName(position int, id Identifier) string {
	if m == NamingIdentifier {
		return BookFilePrefix + string(id)
	}
	return fmt.Sprintf("%s%d", BookFilePrefix, position)
}

// DownloadRecord 单个条目的下载记录
// 写入磁盘后即丢弃, 不在内存中保留全部正文
type DownloadRecord struct {
	Position   int        // 在标识列表中的序号(从0开始)
	Identifier Identifier // 条目标识
	URL        string     // 实际请求的URL
	StatusCode int        // HTTP状态码
	Body       []byte     // 原始正文
}
