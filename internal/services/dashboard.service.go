package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"memviz/internal/models"
)

var (
	ErrNoSimulation = errors.New("no active simulation")
	ErrActive       = errors.New("a simulation is already running")
	ErrBusy         = errors.New("a simulation request is already in flight")
)

const faultIndicatorUnits = 2

// Dashboard consumes snapshots from the simulation service and hands each one
// to the grid, chart, log and stats projections. It also owns the control
// state and notifications.
//
// All view mutation happens under mu, including scheduled flag removal.
// Requests to the simulation service are made without holding it.
type Dashboard struct {
	mu    sync.Mutex
	sim   Simulator
	pub   Publisher
	sched Scheduler
	unit  time.Duration
	log   *logrus.Entry

	grid     *GridRenderer
	chart    *RollingChart
	oplog    *OperationLog
	notifier *Notifier

	snapshot       *models.Snapshot
	stats          models.Stats
	active         bool
	busy           bool
	faultIndicator bool
	faultSeq       int
}

// DashboardOptions tunes timing; zero values pick the defaults
type DashboardOptions struct {
	TimeUnit time.Duration
	Now      func() time.Time
}

// NewDashboard wires the view components to one publisher and scheduler
func NewDashboard(sim Simulator, pub Publisher, sched Scheduler, opts DashboardOptions) *Dashboard {
	if opts.TimeUnit <= 0 {
		opts.TimeUnit = time.Second
	}

	d := &Dashboard{
		sim:   sim,
		pub:   pub,
		unit:  opts.TimeUnit,
		log:   logrus.StandardLogger().WithField("type", "services/dashboard"),
		stats: EmptyStats(),
	}
	d.sched = lockedScheduler{mu: &d.mu, base: sched}
	d.grid = NewGridRenderer(pub, d.sched, d.unit)
	d.chart = NewRollingChart(pub)
	d.oplog = NewOperationLog(pub, opts.Now)
	d.notifier = NewNotifier(pub, d.sched, d.unit, opts.Now)
	return d
}

// Start validates the configuration, starts a simulation and builds the view
// from its initial snapshot.
func (d *Dashboard) Start(ctx context.Context, req StartRequest) (models.ViewState, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.notifier.Notify(models.LevelDanger, err.Error())
		return d.viewLocked(), err
	}

	if err := d.begin(true); err != nil {
		return d.View(), err
	}

	snap, err := d.sim.Start(ctx, req)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	defer d.publishControlsLocked()

	if err != nil {
		d.reportLocked("starting simulation", err)
		return d.viewLocked(), err
	}

	d.log.WithFields(logrus.Fields{
		"technique":   req.Technique,
		"memory_size": *req.MemorySize,
		"page_size":   *req.PageSize,
		"algorithm":   req.Algorithm,
	}).Info("simulation started")

	d.active = true
	d.snapshot = snap
	d.grid.Rebuild(snap)
	d.setStatsLocked(ProjectStats(snap))
	d.chart.Init()
	d.oplog.Clear()
	d.notifier.Notify(models.LevelSuccess, "Simulation started successfully")
	return d.viewLocked(), nil
}

// Step performs one operation. Only one step may be in flight; the execute
// control is disabled until it completes, whatever the outcome.
func (d *Dashboard) Step(ctx context.Context, req StepRequest) (models.ViewState, error) {
	d.mu.Lock()
	if !d.active {
		d.notifier.Notify(models.LevelWarning, "Please start a simulation first")
		view := d.viewLocked()
		d.mu.Unlock()
		return view, ErrNoSimulation
	}
	if err := req.Validate(); err != nil {
		d.notifier.Notify(models.LevelWarning, err.Error())
		view := d.viewLocked()
		d.mu.Unlock()
		return view, err
	}
	d.mu.Unlock()

	if err := d.begin(false); err != nil {
		return d.View(), err
	}

	snap, err := d.sim.Advance(ctx, req)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	defer d.publishControlsLocked()

	if err != nil {
		d.reportLocked("executing operation", err)
		return d.viewLocked(), err
	}
	d.applyLocked(snap)
	return d.viewLocked(), nil
}

// Reset discards the simulation and returns every panel to its baseline
func (d *Dashboard) Reset(ctx context.Context) (models.ViewState, error) {
	d.mu.Lock()
	if d.busy {
		view := d.viewLocked()
		d.mu.Unlock()
		return view, ErrBusy
	}
	d.busy = true
	d.publishControlsLocked()
	d.mu.Unlock()

	err := d.sim.Reset(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	defer d.publishControlsLocked()

	if err != nil {
		d.reportLocked("resetting simulation", err)
		return d.viewLocked(), err
	}

	d.active = false
	d.snapshot = nil
	d.faultSeq++
	d.setFaultIndicatorLocked(false)
	d.grid.Clear(GridPlaceholderIdle)
	d.setStatsLocked(EmptyStats())
	d.oplog.Clear()
	d.chart.Reset()
	d.notifier.Notify(models.LevelSuccess, "Simulation reset successfully")
	d.log.Info("simulation reset")
	return d.viewLocked(), nil
}

// Results proxies the service's analytics for the running simulation
func (d *Dashboard) Results(ctx context.Context) (*models.Results, error) {
	return d.sim.Results(ctx)
}

// Dismiss closes a notification before it expires
func (d *Dashboard) Dismiss(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.notifier.Dismiss(id)
}

// View returns the complete current view
func (d *Dashboard) View() models.ViewState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

// Attach calls fn with the current view while holding the view lock, so
// nothing published afterwards is already part of that view. Used to register
// new websocket clients.
func (d *Dashboard) Attach(fn func(view models.ViewState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.viewLocked())
}

// begin marks a request in flight. Start requires that no simulation is
// running and a step requires one that is; both are checked in the same
// critical section that sets busy.
func (d *Dashboard) begin(starting bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.busy {
		return ErrBusy
	}
	if starting && d.active {
		d.notifier.Notify(models.LevelWarning, "Reset the running simulation before starting a new one")
		return ErrActive
	}
	if !starting && !d.active {
		d.notifier.Notify(models.LevelWarning, "Please start a simulation first")
		return ErrNoSimulation
	}
	d.busy = true
	d.publishControlsLocked()
	return nil
}

// applyLocked hands a step's snapshot to every projection, unless it is
// older than the one on display.
func (d *Dashboard) applyLocked(snap *models.Snapshot) {
	if d.snapshot != nil && snap.OperationCount() < d.snapshot.OperationCount() {
		d.log.WithFields(logrus.Fields{
			"received":  snap.OperationCount(),
			"displayed": d.snapshot.OperationCount(),
		}).Warn("ignoring out-of-order snapshot")
		return
	}

	d.snapshot = snap
	d.grid.Render(snap)
	if stats := ProjectStats(snap); stats != d.stats {
		d.setStatsLocked(stats)
	}
	d.chart.Update(snap)
	d.oplog.Append(snap.Operations)

	if op, ok := snap.LatestOperation(); ok && op.IsFault() {
		d.raiseFaultIndicatorLocked()
	}
}

// reportLocked turns a failed request into a notification. Service-reported
// failures are warnings; transport failures are errors.
func (d *Dashboard) reportLocked(action string, err error) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		d.log.WithField("status", svcErr.StatusCode).Warnf("simulation service rejected request: %s", svcErr.Message)
		d.notifier.Notify(models.LevelWarning, "Error: "+svcErr.Message)
		return
	}

	d.log.WithError(err).Errorf("error %s", action)
	d.notifier.Notify(models.LevelDanger, fmt.Sprintf("Error %s: %v", action, err))
}

func (d *Dashboard) raiseFaultIndicatorLocked() {
	d.faultSeq++
	seq := d.faultSeq
	d.setFaultIndicatorLocked(true)
	d.sched.After(time.Duration(faultIndicatorUnits)*d.unit, func() {
		if d.faultSeq == seq {
			d.setFaultIndicatorLocked(false)
		}
	})
}

func (d *Dashboard) setFaultIndicatorLocked(active bool) {
	if d.faultIndicator == active {
		return
	}
	d.faultIndicator = active
	d.pub.Publish(models.ViewEvent{
		Type: models.EventFaultIndicator,
		Data: map[string]bool{"active": active},
	})
}

func (d *Dashboard) setStatsLocked(stats models.Stats) {
	d.stats = stats
	d.pub.Publish(models.ViewEvent{Type: models.EventStats, Data: stats})
}

func (d *Dashboard) controlsLocked() models.Controls {
	return models.Controls{
		ConfigEnabled:  !d.active && !d.busy,
		ExecuteEnabled: d.active && !d.busy,
		Busy:           d.busy,
	}
}

func (d *Dashboard) publishControlsLocked() {
	d.pub.Publish(models.ViewEvent{Type: models.EventControls, Data: d.controlsLocked()})
}

func (d *Dashboard) viewLocked() models.ViewState {
	return models.ViewState{
		Active:             d.active,
		Grid:               d.grid.State(),
		Chart:              d.chart.State(),
		Log:                d.oplog.State(),
		Stats:              d.stats,
		Controls:           d.controlsLocked(),
		Notifications:      d.notifier.Active(),
		PageFaultIndicator: d.faultIndicator,
	}
}
