package models

// Cell is the rendered state of one memory frame in the grid
type Cell struct {
	Index   int    `json:"index"`
	Status  string `json:"status"`
	Content string `json:"content"`
	Title   string `json:"title"`
	Changed bool   `json:"changed"`
	Fault   bool   `json:"fault"`
}

// GridState is the full grid as seen by a newly connected client
type GridState struct {
	Cells       []Cell `json:"cells"`
	Placeholder string `json:"placeholder,omitempty"`
}
