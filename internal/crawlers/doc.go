// Package crawlers 提供排行榜索引页解析和书籍正文下载功能
//
// # 概述
//
// crawlers包实现一条单向的顺序流水线: 获取排行榜页面 → 提取有序的条目标识 → 逐个下载条目正文 → 写入 book-<序号> 文件。
// 全部工作在调用者的goroutine中按顺序完成, 没有并发、重试或限速。
//
// # 核心组件
//
// ## PageFetcher
//
// 传输抽象, 只有传输层错误(DNS、连接、超时、取消)返回error, 非2xx响应照常返回Page。
//
//   - StaticFetcher: 基于Colly的同步collector, 每次请求使用Clone出的副本
//   - DynamicFetcher: 基于go-rod, 用于需要JavaScript渲染的索引页
//
//	fetcher := NewStaticFetcher(StaticFetcherConfig{Timeout: 30 * time.Second}, headerProvider)
//	page, err := fetcher.Fetch(ctx, "https://www.gutenberg.org/browse/scores/top")
//
// ## IdentifierLister
//
// 获取索引页, 选择第一个<ol>(或配置的CSS选择器), 对每个直接<li>子元素取第一个链接的最后一个路径段。
//
//	lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: indexURL})
//	ids, err := lister.ListTopIdentifiers(ctx)
//
// ## BookDownloader
//
// 用 {id} 模板生成条目URL, 按列表顺序下载并覆盖写入 destDir/book-<序号>。
//
//	downloader, err := NewBookDownloader(fetcher, DownloaderConfig{ItemURLTemplate: tmpl})
//	written, err := downloader.DownloadAll(ctx, ids, "../nfs/nfs-storage/input")
//
// # 错误处理
//
//   - 索引页非2xx: 记录警告, 返回空列表, 不返回错误
//   - 找不到列表元素: ErrListNotFound
//   - 列表项没有链接: 跳过, 汇总为*ExtractionError (strict模式下作为错误返回)
//   - 条目获取或写入失败: *ItemError, 默认中止整批
//   - 开启状态码检查时的非2xx条目: ErrUnexpectedStatus
package crawlers
