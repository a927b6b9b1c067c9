package models

// Stats are the scalar values shown in the analytics and memory info panels
type Stats struct {
	PageFaults      int     `json:"page_faults"`
	HitPct          float64 `json:"hit_pct"`
	MissPct         float64 `json:"miss_pct"`
	HitMissText     string  `json:"hit_miss_text"`
	UtilizationPct  float64 `json:"utilization_pct"`
	FreePct         float64 `json:"free_pct"`
	UtilizationText string  `json:"utilization_text"`

	AllocatedFrames int    `json:"allocated_frames"`
	TotalFrames     int    `json:"total_frames"`
	MemorySize      int    `json:"memory_size"`
	PageSize        int    `json:"page_size"`
	MemoryInfoText  string `json:"memory_info_text"`
	TotalMemoryText string `json:"total_memory_text"`
	PageSizeText    string `json:"page_size_text"`
}

// Results mirrors the simulation service's get_results analytics
type Results struct {
	PageFaults        int     `json:"page_faults"`
	MemoryAccesses    int     `json:"memory_accesses"`
	PageHits          int     `json:"page_hits"`
	HitRatio          float64 `json:"hit_ratio"`
	MissRatio         float64 `json:"miss_ratio"`
	MemoryUtilization float64 `json:"memory_utilization"`
	AllocatedFrames   int     `json:"allocated_frames"`
	TotalFrames       int     `json:"total_frames"`
}
