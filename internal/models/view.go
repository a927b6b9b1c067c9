package models

// View event types published to dashboard clients
const (
	EventView               = "view"
	EventGridBuild          = "grid.build"
	EventGridPatch          = "grid.patch"
	EventGridPlaceholder    = "grid.placeholder"
	EventChart              = "chart"
	EventLogEntry           = "log.entry"
	EventLogEvict           = "log.evict"
	EventLogClear           = "log.clear"
	EventStats              = "stats"
	EventControls           = "controls"
	EventNotification       = "notification"
	EventNotificationRemove = "notification.dismiss"
	EventFaultIndicator     = "fault.indicator"
)

// ViewEvent is one incremental mutation of the dashboard view
type ViewEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Controls tracks which dashboard controls are usable
type Controls struct {
	ConfigEnabled  bool `json:"config_enabled"`
	ExecuteEnabled bool `json:"execute_enabled"`
	Busy           bool `json:"busy"`
}

// ViewState is the complete dashboard view
type ViewState struct {
	Active             bool           `json:"active"`
	Grid               GridState      `json:"grid"`
	Chart              ChartState     `json:"chart"`
	Log                LogState       `json:"log"`
	Stats              Stats          `json:"stats"`
	Controls           Controls       `json:"controls"`
	Notifications      []Notification `json:"notifications"`
	PageFaultIndicator bool           `json:"page_fault_indicator"`
}
