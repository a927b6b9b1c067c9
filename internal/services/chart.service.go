package services

import (
	"github.com/sirupsen/logrus"

	"memviz/internal/models"
)

// MaxHistoryPoints is the number of bars kept in the utilization chart
const MaxHistoryPoints = 10

// RollingChart manages the stacked allocated/free utilization series
type RollingChart struct {
	pub Publisher
	log *logrus.Entry

	points   []models.HistoryPoint
	instance int
	exists   bool
}

// NewRollingChart creates a chart manager with no chart instance yet
func NewRollingChart(pub Publisher) *RollingChart {
	return &RollingChart{
		pub: pub,
		log: logrus.StandardLogger().WithField("type", "services/chart"),
	}
}

// Init recreates the chart with a single baseline point:
// operation 0, 0% allocated, 100% free.
func (c *RollingChart) Init() {
	c.destroy()
	c.points = []models.HistoryPoint{{OperationCount: 0, AllocatedPct: 0, FreePct: 100}}
	c.create()
}

// Update records the snapshot's utilization if it is newer than the last
// point and redraws. Without a chart instance it does nothing.
func (c *RollingChart) Update(snap *models.Snapshot) {
	if snap == nil || !c.exists {
		return
	}

	allocated := utilizationPct(snap)
	point := models.HistoryPoint{
		OperationCount: snap.OperationCount(),
		AllocatedPct:   allocated,
		FreePct:        round1(100 - allocated),
	}
	if !c.Append(point) {
		return
	}
	c.redraw()
}

// Append adds a point keyed by operation count. Points whose key is not
// strictly greater than the last one are dropped. The oldest point is evicted
// past MaxHistoryPoints.
func (c *RollingChart) Append(point models.HistoryPoint) bool {
	if n := len(c.points); n > 0 && point.OperationCount <= c.points[n-1].OperationCount {
		return false
	}

	c.points = append(c.points, point)
	if len(c.points) > MaxHistoryPoints {
		c.points = c.points[1:]
	}
	return true
}

// Reset destroys the chart, clears the series and creates an empty chart
func (c *RollingChart) Reset() {
	c.destroy()
	c.points = nil
	c.create()
}

// Points returns a copy of the retained history
func (c *RollingChart) Points() []models.HistoryPoint {
	points := make([]models.HistoryPoint, len(c.points))
	copy(points, c.points)
	return points
}

// State returns both series; they always have the same length
func (c *RollingChart) State() models.ChartState {
	state := models.ChartState{
		Labels:    make([]int, 0, len(c.points)),
		Allocated: make([]float64, 0, len(c.points)),
		Free:      make([]float64, 0, len(c.points)),
	}
	if c.exists {
		state.Instance = c.instance
	}
	for _, p := range c.points {
		state.Labels = append(state.Labels, p.OperationCount)
		state.Allocated = append(state.Allocated, p.AllocatedPct)
		state.Free = append(state.Free, p.FreePct)
	}
	return state
}

func (c *RollingChart) create() {
	c.instance++
	c.exists = true
	c.redraw()
}

func (c *RollingChart) destroy() {
	if !c.exists {
		return
	}
	c.log.WithField("instance", c.instance).Debug("destroying chart instance")
	c.exists = false
}

func (c *RollingChart) redraw() {
	c.pub.Publish(models.ViewEvent{Type: models.EventChart, Data: c.State()})
}
