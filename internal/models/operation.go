package models

// OperationType tags the operation variant
type OperationType string

const (
	OperationAllocate   OperationType = "allocate"
	OperationDeallocate OperationType = "deallocate"
	OperationAccess     OperationType = "access"
)

// Access results
const (
	AccessHit   = "hit"
	AccessFault = "fault"
)

// Operation is one entry of the simulation's operation history.
//
// allocate carries Size, ProcessID and Frames; deallocate carries ProcessID,
// Address and Frames; access carries Address and Result. Fields missing from
// the wire stay nil/empty.
type Operation struct {
	Type      OperationType `json:"type"`
	ProcessID ProcessID     `json:"process_id,omitempty"`
	Size      *int          `json:"size,omitempty"`
	Address   *int          `json:"address,omitempty"`
	Frames    []int         `json:"frames,omitempty"`
	Result    string        `json:"result,omitempty"`
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	*o = Operation{}
	fields := objectFields(data)
	if fields == nil {
		return nil
	}

	var typ string
	if decodeField(fields, "type", &typ) {
		o.Type = OperationType(typ)
	}
	if raw, ok := fields["process_id"]; ok {
		_ = o.ProcessID.UnmarshalJSON(raw)
	}

	var size int
	if decodeField(fields, "size", &size) {
		o.Size = &size
	}
	var address int
	if decodeField(fields, "address", &address) {
		o.Address = &address
	}

	var frames []int
	if decodeField(fields, "frames", &frames) {
		if frames == nil {
			frames = []int{}
		}
		o.Frames = frames
	}

	var result string
	if decodeField(fields, "result", &result) {
		o.Result = result
	}
	return nil
}

// IsFault reports whether this is an access that missed
func (o Operation) IsFault() bool {
	return o.Type == OperationAccess && o.Result == AccessFault
}

// Equal compares two operations field by field
func (o Operation) Equal(other Operation) bool {
	if o.Type != other.Type || o.ProcessID != other.ProcessID || o.Result != other.Result {
		return false
	}
	if !equalIntPtr(o.Size, other.Size) || !equalIntPtr(o.Address, other.Address) {
		return false
	}
	if (o.Frames == nil) != (other.Frames == nil) || len(o.Frames) != len(other.Frames) {
		return false
	}
	for i := range o.Frames {
		if o.Frames[i] != other.Frames[i] {
			return false
		}
	}
	return true
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
