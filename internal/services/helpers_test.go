package services

import (
	"context"
	"sync"
	"time"

	"memviz/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ViewEvent
}

func (p *recordingPublisher) Publish(event models.ViewEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []models.ViewEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]models.ViewEvent, len(p.events))
	copy(events, p.events)
	return events
}

func (p *recordingPublisher) OfType(typ string) []models.ViewEvent {
	var matched []models.ViewEvent
	for _, e := range p.Events() {
		if e.Type == typ {
			matched = append(matched, e)
		}
	}
	return matched
}

func (p *recordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type scheduledTask struct {
	at   time.Duration
	fn   func()
	done bool
}

// manualScheduler runs callbacks only when the test advances its clock
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*scheduledTask
}

func (s *manualScheduler) After(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &scheduledTask{at: s.now + d, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.done = true
	}
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	target := s.now
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *scheduledTask
		for _, t := range s.tasks {
			if !t.done && t.at <= target && (next == nil || t.at < next.at) {
				next = t
			}
		}
		if next != nil {
			next.done = true
		}
		s.mu.Unlock()

		if next == nil {
			return
		}
		next.fn()
	}
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

func intPtr(v int) *int {
	return &v
}

// snapshotOf builds a snapshot from frame owners: "" is a free frame, "-" an
// undefined one, anything else the owning process
func snapshotOf(pageSize int, owners []string, ops ...models.Operation) *models.Snapshot {
	memory := make([]*models.Frame, len(owners))
	for i, owner := range owners {
		switch owner {
		case "-":
		case "":
			memory[i] = &models.Frame{Status: models.FrameFree}
		default:
			memory[i] = &models.Frame{Status: models.FrameAllocated, ID: models.ProcessID(owner)}
		}
	}
	return &models.Snapshot{
		MemorySize:  pageSize * len(owners),
		PageSize:    pageSize,
		TotalFrames: len(owners),
		Memory:      memory,
		Operations:  ops,
	}
}

func allocateOp(pid string, size int, frames ...int) models.Operation {
	return models.Operation{
		Type:      models.OperationAllocate,
		ProcessID: models.ProcessID(pid),
		Size:      intPtr(size),
		Frames:    frames,
	}
}

func accessOp(address int, result string) models.Operation {
	return models.Operation{
		Type:    models.OperationAccess,
		Address: intPtr(address),
		Result:  result,
	}
}

type fakeSimulator struct {
	mu sync.Mutex

	startSnap *models.Snapshot
	startErr  error
	steps     []*models.Snapshot
	stepErr   error
	resetErr  error
	results   *models.Results

	// when set, Advance signals entered and waits for release
	entered chan struct{}
	release chan struct{}

	calls map[string]int
}

func newFakeSimulator() *fakeSimulator {
	return &fakeSimulator{calls: make(map[string]int)}
}

func (f *fakeSimulator) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeSimulator) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSimulator) Start(ctx context.Context, req StartRequest) (*models.Snapshot, error) {
	f.record("start")
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.startSnap, nil
}

func (f *fakeSimulator) Advance(ctx context.Context, req StepRequest) (*models.Snapshot, error) {
	f.record("advance")
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.stepErr != nil {
		return nil, f.stepErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.steps[0]
	if len(f.steps) > 1 {
		f.steps = f.steps[1:]
	}
	return snap, nil
}

func (f *fakeSimulator) Reset(ctx context.Context) error {
	f.record("reset")
	return f.resetErr
}

func (f *fakeSimulator) Results(ctx context.Context) (*models.Results, error) {
	f.record("results")
	return f.results, nil
}
