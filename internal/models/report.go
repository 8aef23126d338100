package models

import (
	"encoding/json"
	"time"
)

// HarvestReport 运行报告
type HarvestReport struct {
	// 运行信息
	RunID     string     `json:"run_id"`
	IndexURL  string     `json:"index_url"`
	OutputDir string     `json:"output_dir"`
	Naming    NamingMode `json:"naming"`
	Status    RunStatus  `json:"status"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// 统计信息
	Stats HarvestStats `json:"stats"`

	// 标识与文件
	Identifiers []Identifier     `json:"identifiers"`
	Files       []BookFile       `json:"files"`
	FailedItems []FailedItemInfo `json:"failed_items"`

	// 配置快照
	Config HarvestConfig `json:"config"`
}

// FailedItemInfo 失败条目信息
type FailedItemInfo struct {
	Position   int        `json:"position"`
	Identifier Identifier `json:"identifier"`
	URL        string     `json:"url"`
	Op         string     `json:"op"` // fetch | write
	ErrorMsg   string     `json:"error_msg"`
}

// NewHarvestReport 创建报告, 分配运行ID
func NewHarvestReport(config HarvestConfig) *HarvestReport {
	return &HarvestReport{
		RunID:       generateID(),
		IndexURL:    config.IndexURL,
		OutputDir:   config.OutputDir,
		Naming:      config.Naming,
		StartTime:   time.Now(),
		Identifiers: make([]Identifier, 0),
		Files:       make([]BookFile, 0),
		FailedItems: make([]FailedItemInfo, 0),
		Config:      config,
	}
}

// Finish 记录结束时间并推导最终状态
func (r *HarvestReport) Finish(err error) {
	r.EndTime = time.Now()
	r.Stats.Duration = r.EndTime.Sub(r.StartTime).Seconds()

	switch {
	case err != nil && r.Stats.WrittenFiles == 0:
		r.Status = RunStatusFailed
	case err != nil:
		r.Status = RunStatusPartial
	case len(r.Identifiers) == 0:
		r.Status = RunStatusEmpty
	default:
		r.Status = RunStatusCompleted
	}
}

// ToJSON 序列化为JSON
func (r *HarvestReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *HarvestReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
