package models

import "time"

// Log entry levels, matching the dashboard's text styles
const (
	LevelSuccess   = "success"
	LevelWarning   = "warning"
	LevelInfo      = "info"
	LevelDanger    = "danger"
	LevelSecondary = "secondary"
)

// LogEntry is one rendered line of the operation log
type LogEntry struct {
	ID       string        `json:"id"`
	Time     time.Time     `json:"time"`
	TimeText string        `json:"time_text"`
	Kind     OperationType `json:"kind"`
	Level    string        `json:"level"`
	Text     string        `json:"text"`
}

// LogState is the visible log, newest first
type LogState struct {
	Entries     []LogEntry `json:"entries"`
	Placeholder string     `json:"placeholder,omitempty"`
}
