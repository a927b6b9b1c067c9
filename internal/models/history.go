package models

// HistoryPoint is a single bar of the utilization chart
type HistoryPoint struct {
	OperationCount int     `json:"operation_count"`
	AllocatedPct   float64 `json:"allocated_pct"`
	FreePct        float64 `json:"free_pct"`
}

// ChartState holds the two stacked series of the utilization chart.
// Instance is 0 while no chart exists and grows every time one is created.
type ChartState struct {
	Instance  int       `json:"instance"`
	Labels    []int     `json:"labels"`
	Allocated []float64 `json:"allocated"`
	Free      []float64 `json:"free"`
}
