package models

import (
	"bytes"
	"encoding/json"
)

// Frame statuses reported by the simulation service
const (
	FrameFree      = "free"
	FrameAllocated = "allocated"
)

// ProcessID is the owner of a frame. The service sends numbers, but strings
// are accepted too; anything else decodes as empty.
type ProcessID string

func (p *ProcessID) UnmarshalJSON(data []byte) error {
	*p = ""
	if isNull(data) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = ProcessID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*p = ProcessID(n.String())
	}
	return nil
}

// Frame is one physical frame slot
type Frame struct {
	Status string    `json:"status"`
	ID     ProcessID `json:"id,omitempty"`
}

func (f *Frame) UnmarshalJSON(data []byte) error {
	*f = Frame{}
	fields := objectFields(data)
	if fields == nil {
		return nil
	}

	var status string
	if decodeField(fields, "status", &status) {
		f.Status = status
	}
	if raw, ok := fields["id"]; ok {
		_ = f.ID.UnmarshalJSON(raw)
	}
	return nil
}

// IsAllocated reports whether the frame is owned by a process. A nil frame or
// an unrecognised status counts as free.
func (f *Frame) IsAllocated() bool {
	return f != nil && f.Status == FrameAllocated
}

// Snapshot is the complete simulation state returned by the simulation service
// after start and after every step.
type Snapshot struct {
	Technique      string           `json:"technique,omitempty"`
	Algorithm      string           `json:"algorithm,omitempty"`
	MemorySize     int              `json:"memory_size"`
	PageSize       int              `json:"page_size"`
	TotalFrames    int              `json:"total_frames"`
	Memory         []*Frame         `json:"memory"`
	PageTable      map[string][]int `json:"page_table,omitempty"`
	PageFaults     int              `json:"page_faults"`
	PageHits       int              `json:"page_hits"`
	MemoryAccesses int              `json:"memory_accesses"`
	Operations     []Operation      `json:"operations"`

	// TotalOperations is the service-side operation counter. Older services
	// only send a truncated operations window and leave this at zero.
	TotalOperations int `json:"operation_count,omitempty"`
}

// UnmarshalJSON decodes field by field so a single malformed field falls back
// to its zero value instead of rejecting the whole snapshot.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	*s = Snapshot{}
	fields := objectFields(data)
	if fields == nil {
		return nil
	}

	var str string
	if decodeField(fields, "technique", &str) {
		s.Technique = str
	}
	str = ""
	if decodeField(fields, "algorithm", &str) {
		s.Algorithm = str
	}

	ints := map[string]*int{
		"memory_size":     &s.MemorySize,
		"page_size":       &s.PageSize,
		"total_frames":    &s.TotalFrames,
		"page_faults":     &s.PageFaults,
		"page_hits":       &s.PageHits,
		"memory_accesses": &s.MemoryAccesses,
		"operation_count": &s.TotalOperations,
	}
	for key, dst := range ints {
		var v int
		if decodeField(fields, key, &v) {
			*dst = v
		}
	}

	var memory []*Frame
	if decodeField(fields, "memory", &memory) {
		s.Memory = memory
	}

	var pageTable map[string][]int
	if decodeField(fields, "page_table", &pageTable) {
		s.PageTable = pageTable
	}

	var ops []Operation
	if decodeField(fields, "operations", &ops) {
		s.Operations = ops
	}

	return nil
}

// Frame returns the frame at index i, or nil when out of range or undefined
func (s *Snapshot) Frame(i int) *Frame {
	if s == nil || i < 0 || i >= len(s.Memory) {
		return nil
	}
	return s.Memory[i]
}

// AllocatedFrames counts frames currently owned by a process
func (s *Snapshot) AllocatedFrames() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, f := range s.Memory {
		if f.IsAllocated() {
			count++
		}
	}
	return count
}

// FrameCount is total_frames, falling back to the length of the frame array
// when the service leaves it unset.
func (s *Snapshot) FrameCount() int {
	if s == nil {
		return 0
	}
	if s.TotalFrames > 0 {
		return s.TotalFrames
	}
	return len(s.Memory)
}

// OperationCount orders snapshots. It prefers the service's counter and falls
// back to the number of operations carried in the snapshot.
func (s *Snapshot) OperationCount() int {
	if s == nil {
		return 0
	}
	if s.TotalOperations > 0 {
		return s.TotalOperations
	}
	return len(s.Operations)
}

// LatestOperation returns the newest operation, if any
func (s *Snapshot) LatestOperation() (Operation, bool) {
	if s == nil || len(s.Operations) == 0 {
		return Operation{}, false
	}
	return s.Operations[len(s.Operations)-1], true
}

func objectFields(data []byte) map[string]json.RawMessage {
	if isNull(data) {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

func decodeField(fields map[string]json.RawMessage, key string, dst interface{}) bool {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func isNull(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
