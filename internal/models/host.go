package models

// HostMemory describes the physical memory of the machine running memviz
type HostMemory struct {
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsagePercent float64 `json:"usage_percent"`
	PageSize     int     `json:"page_size"`
	TotalFrames  uint64  `json:"total_frames"`
}
