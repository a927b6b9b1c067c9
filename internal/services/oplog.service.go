package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"memviz/internal/models"
)

const (
	// MaxLogEntries bounds the visible operation log
	MaxLogEntries  = 100
	LogPlaceholder = "No operations yet"

	unknownField = "unknown"
)

// OperationLog is the newest-first list of rendered operations
type OperationLog struct {
	pub     Publisher
	now     func() time.Time
	log     *logrus.Entry
	entries *doublylinkedlist.List
}

// NewOperationLog creates an empty log. now stamps entries; nil means time.Now.
func NewOperationLog(pub Publisher, now func() time.Time) *OperationLog {
	if now == nil {
		now = time.Now
	}
	return &OperationLog{
		pub:     pub,
		now:     now,
		log:     logrus.StandardLogger().WithField("type", "services/oplog"),
		entries: doublylinkedlist.New(),
	}
}

// Append renders the most recent operation and inserts it at the head of the
// log. It does nothing for an empty history.
func (l *OperationLog) Append(operations []models.Operation) {
	if len(operations) == 0 {
		return
	}

	op := operations[len(operations)-1]
	text, level := FormatOperation(op)
	ts := l.now()
	entry := models.LogEntry{
		ID:       xid.New().String(),
		Time:     ts,
		TimeText: "[" + ts.Format("15:04:05") + "]",
		Kind:     op.Type,
		Level:    level,
		Text:     text,
	}

	l.entries.Prepend(entry)
	l.pub.Publish(models.ViewEvent{Type: models.EventLogEntry, Data: entry})

	for l.entries.Size() > MaxLogEntries {
		last := l.entries.Size() - 1
		value, _ := l.entries.Get(last)
		l.entries.Remove(last)
		if evicted, ok := value.(models.LogEntry); ok {
			l.log.WithField("id", evicted.ID).Trace("evicted oldest log entry")
			l.pub.Publish(models.ViewEvent{
				Type: models.EventLogEvict,
				Data: map[string]string{"id": evicted.ID},
			})
		}
	}
}

// Clear empties the log and shows the placeholder
func (l *OperationLog) Clear() {
	l.entries.Clear()
	l.pub.Publish(models.ViewEvent{
		Type: models.EventLogClear,
		Data: models.LogState{Entries: []models.LogEntry{}, Placeholder: LogPlaceholder},
	})
}

// Len is the number of visible entries
func (l *OperationLog) Len() int {
	return l.entries.Size()
}

// State returns the visible entries, newest first
func (l *OperationLog) State() models.LogState {
	state := models.LogState{Entries: make([]models.LogEntry, 0, l.entries.Size())}
	it := l.entries.Iterator()
	for it.Next() {
		if entry, ok := it.Value().(models.LogEntry); ok {
			state.Entries = append(state.Entries, entry)
		}
	}
	if len(state.Entries) == 0 {
		state.Placeholder = LogPlaceholder
	}
	return state
}

// FormatOperation renders one operation as a log line and picks its level.
// Missing fields render as "unknown".
func FormatOperation(op models.Operation) (string, string) {
	switch op.Type {
	case models.OperationAllocate:
		return fmt.Sprintf("Allocated %s bytes for process %s in frames %s",
			intField(op.Size), processField(op.ProcessID), framesField(op.Frames)), models.LevelSuccess

	case models.OperationDeallocate:
		return fmt.Sprintf("Deallocated memory for process %s from frames %s",
			processField(op.ProcessID), framesField(op.Frames)), models.LevelWarning

	case models.OperationAccess:
		result, level := unknownField, models.LevelSecondary
		switch op.Result {
		case models.AccessHit:
			result, level = models.AccessHit, models.LevelInfo
		case models.AccessFault:
			result, level = models.AccessFault, models.LevelDanger
		}
		return fmt.Sprintf("Memory access at address %s resulted in page %s",
			intField(op.Address), result), level

	default:
		kind := string(op.Type)
		if kind == "" {
			kind = unknownField
		}
		return fmt.Sprintf("Unknown operation %s", kind), models.LevelSecondary
	}
}

func intField(v *int) string {
	if v == nil {
		return unknownField
	}
	return strconv.Itoa(*v)
}

func processField(id models.ProcessID) string {
	if id == "" {
		return unknownField
	}
	return string(id)
}

func framesField(frames []int) string {
	if frames == nil {
		return unknownField
	}
	if len(frames) == 0 {
		return "none"
	}
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = strconv.Itoa(f)
	}
	return strings.Join(parts, ", ")
}
