package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"memviz/internal/models"
)

const (
	GridPlaceholderIdle  = "Start a simulation to visualize memory"
	GridPlaceholderError = "Error rendering memory grid"
	GridPlaceholderEmpty = "No memory frames to display"

	changedFlagUnits = 1
	faultFlagUnits   = 2
)

// GridRenderer keeps one cell per memory frame and publishes only the cells
// whose state changed between snapshots.
type GridRenderer struct {
	pub   Publisher
	sched Scheduler
	unit  time.Duration
	log   *logrus.Entry

	cells       []models.Cell
	placeholder string
	built       bool

	// generation changes whenever the cell list is replaced, so pending flag
	// timers for old cells become no-ops
	generation int
	flagSeq    int
	changedSeq []int
	faultSeq   []int

	lastOpCount int
	lastOp      *models.Operation
}

// NewGridRenderer creates an empty grid showing the idle placeholder
func NewGridRenderer(pub Publisher, sched Scheduler, unit time.Duration) *GridRenderer {
	return &GridRenderer{
		pub:         pub,
		sched:       sched,
		unit:        unit,
		log:         logrus.StandardLogger().WithField("type", "services/grid"),
		placeholder: GridPlaceholderIdle,
	}
}

// Render applies a snapshot. The first call builds the grid; later calls
// rewrite only differing cells and flag them as changed for one time unit.
// A fault on a new snapshot's latest access highlights the target frame for
// two time units.
func (g *GridRenderer) Render(snap *models.Snapshot) {
	if snap == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			g.log.WithField("panic", r).Error("failed to render memory grid")
			g.reset(GridPlaceholderError)
		}
	}()

	if !g.built {
		g.build(snap)
		g.remember(snap)
		return
	}

	touched := make(map[int]bool)

	n := len(g.cells)
	if len(snap.Memory) < n {
		n = len(snap.Memory)
	}
	for i := 0; i < n; i++ {
		status, content := effectiveState(snap.Frame(i))
		cell := &g.cells[i]
		if cell.Status == status && cell.Content == content {
			continue
		}

		cell.Status = status
		cell.Content = content
		cell.Title = cellTitle(i, status)
		cell.Fault = false
		g.faultSeq[i] = 0
		g.flag(i, false)
		touched[i] = true
	}

	if g.isNew(snap) {
		if idx, ok := g.faultTarget(snap); ok {
			g.flag(idx, true)
			touched[idx] = true
		}
	}
	g.remember(snap)

	if len(touched) > 0 {
		g.publishPatch(touched)
	}
}

// Rebuild discards the current cells and builds the grid from scratch
func (g *GridRenderer) Rebuild(snap *models.Snapshot) {
	g.cells = nil
	g.built = false
	g.generation++
	g.Render(snap)
}

// Clear drops all cells and shows placeholder instead
func (g *GridRenderer) Clear(placeholder string) {
	g.reset(placeholder)
}

// State returns a copy of the grid for newly connected clients
func (g *GridRenderer) State() models.GridState {
	cells := make([]models.Cell, len(g.cells))
	copy(cells, g.cells)
	state := models.GridState{Cells: cells}
	if len(cells) == 0 {
		state.Placeholder = g.placeholder
	}
	return state
}

func (g *GridRenderer) build(snap *models.Snapshot) {
	g.generation++
	g.cells = make([]models.Cell, len(snap.Memory))
	g.changedSeq = make([]int, len(snap.Memory))
	g.faultSeq = make([]int, len(snap.Memory))
	for i := range snap.Memory {
		status, content := effectiveState(snap.Frame(i))
		g.cells[i] = models.Cell{
			Index:   i,
			Status:  status,
			Content: content,
			Title:   cellTitle(i, status),
		}
	}
	g.built = true

	if len(g.cells) == 0 {
		g.placeholder = GridPlaceholderEmpty
		g.pub.Publish(models.ViewEvent{
			Type: models.EventGridPlaceholder,
			Data: models.GridState{Placeholder: g.placeholder},
		})
		return
	}
	g.placeholder = ""

	cells := make([]models.Cell, len(g.cells))
	copy(cells, g.cells)
	g.pub.Publish(models.ViewEvent{Type: models.EventGridBuild, Data: cells})
}

func (g *GridRenderer) reset(placeholder string) {
	g.generation++
	g.cells = nil
	g.built = false
	g.changedSeq = nil
	g.faultSeq = nil
	g.lastOpCount = 0
	g.lastOp = nil
	g.placeholder = placeholder
	g.pub.Publish(models.ViewEvent{
		Type: models.EventGridPlaceholder,
		Data: models.GridState{Placeholder: placeholder},
	})
}

// flag sets the changed or fault flag on cell i and schedules its removal
func (g *GridRenderer) flag(i int, fault bool) {
	g.flagSeq++
	seq, gen := g.flagSeq, g.generation
	units := changedFlagUnits
	if fault {
		g.cells[i].Fault = true
		g.faultSeq[i] = seq
		units = faultFlagUnits
	} else {
		g.cells[i].Changed = true
		g.changedSeq[i] = seq
	}

	g.sched.After(time.Duration(units)*g.unit, func() {
		g.unflag(gen, i, seq, fault)
	})
}

func (g *GridRenderer) unflag(gen, i, seq int, fault bool) {
	if gen != g.generation || i >= len(g.cells) {
		return
	}
	cell := &g.cells[i]
	if fault {
		if !cell.Fault || g.faultSeq[i] != seq {
			return
		}
		cell.Fault = false
	} else {
		if !cell.Changed || g.changedSeq[i] != seq {
			return
		}
		cell.Changed = false
	}
	g.pub.Publish(models.ViewEvent{Type: models.EventGridPatch, Data: []models.Cell{*cell}})
}

func (g *GridRenderer) faultTarget(snap *models.Snapshot) (int, bool) {
	op, ok := snap.LatestOperation()
	if !ok || !op.IsFault() || op.Address == nil || snap.PageSize <= 0 {
		return 0, false
	}
	if *op.Address < 0 {
		return 0, false
	}
	idx := *op.Address / snap.PageSize
	if idx >= len(g.cells) {
		return 0, false
	}
	return idx, true
}

// isNew reports whether snap differs in history from the last rendered one
func (g *GridRenderer) isNew(snap *models.Snapshot) bool {
	op, ok := snap.LatestOperation()
	if snap.OperationCount() != g.lastOpCount {
		return true
	}
	if !ok || g.lastOp == nil {
		return ok != (g.lastOp != nil)
	}
	return !op.Equal(*g.lastOp)
}

func (g *GridRenderer) remember(snap *models.Snapshot) {
	g.lastOpCount = snap.OperationCount()
	g.lastOp = nil
	if op, ok := snap.LatestOperation(); ok {
		g.lastOp = &op
	}
}

func (g *GridRenderer) publishPatch(touched map[int]bool) {
	patch := make([]models.Cell, 0, len(touched))
	for i := range g.cells {
		if touched[i] {
			patch = append(patch, g.cells[i])
		}
	}
	g.pub.Publish(models.ViewEvent{Type: models.EventGridPatch, Data: patch})
}

// effectiveState maps a frame to what its cell shows. Undefined frames and
// unknown statuses render as free.
func effectiveState(f *models.Frame) (status, content string) {
	if !f.IsAllocated() {
		return models.FrameFree, ""
	}
	return models.FrameAllocated, string(f.ID)
}

func cellTitle(i int, status string) string {
	return fmt.Sprintf("Frame %d (%s)", i, status)
}
