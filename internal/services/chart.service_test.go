package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memviz/internal/models"
)

func withCount(snap *models.Snapshot, count int) *models.Snapshot {
	snap.TotalOperations = count
	return snap
}

func TestRollingChart_InitStartsWithBaseline(t *testing.T) {
	pub := &recordingPublisher{}
	chart := NewRollingChart(pub)

	assert.Equal(t, 0, chart.State().Instance)

	chart.Init()

	state := chart.State()
	assert.Equal(t, 1, state.Instance)
	assert.Equal(t, []int{0}, state.Labels)
	assert.Equal(t, []float64{0}, state.Allocated)
	assert.Equal(t, []float64{100}, state.Free)
	assert.Len(t, pub.OfType(models.EventChart), 1)
}

func TestRollingChart_UpdateWithoutInstanceIsNoop(t *testing.T) {
	pub := &recordingPublisher{}
	chart := NewRollingChart(pub)

	chart.Update(withCount(snapshotOf(100, []string{"1", ""}), 1))

	assert.Empty(t, chart.Points())
	assert.Empty(t, pub.Events())
}

func TestRollingChart_UpdateAppendsUtilization(t *testing.T) {
	chart := NewRollingChart(&recordingPublisher{})
	chart.Init()

	chart.Update(withCount(snapshotOf(100, []string{"1", "", "2", ""}), 1))
	chart.Update(withCount(snapshotOf(100, []string{"1", "", "", ""}), 2))
	chart.Update(withCount(snapshotOf(100, []string{"1", "1", "1"}), 3))

	state := chart.State()
	assert.Equal(t, []int{0, 1, 2, 3}, state.Labels)
	assert.Equal(t, []float64{0, 50, 25, 100}, state.Allocated)
	assert.Equal(t, []float64{100, 50, 75, 0}, state.Free)
}

func TestRollingChart_SharesSumToHundred(t *testing.T) {
	chart := NewRollingChart(&recordingPublisher{})
	chart.Init()

	chart.Update(withCount(snapshotOf(100, []string{"1", "", ""}), 1))
	chart.Update(withCount(snapshotOf(100, []string{"1", "1", "", "", "", "", ""}), 2))

	for _, p := range chart.Points() {
		assert.InDelta(t, 100, p.AllocatedPct+p.FreePct, 0.1)
	}
	assert.Equal(t, 33.3, chart.Points()[1].AllocatedPct)
	assert.Equal(t, 66.7, chart.Points()[1].FreePct)
}

func TestRollingChart_NonIncreasingKeyIsNoop(t *testing.T) {
	pub := &recordingPublisher{}
	chart := NewRollingChart(pub)
	chart.Init()
	chart.Update(withCount(snapshotOf(100, []string{"1", ""}), 3))
	pub.Reset()

	chart.Update(withCount(snapshotOf(100, []string{"1", "1"}), 3))
	chart.Update(withCount(snapshotOf(100, []string{"", ""}), 2))

	assert.Equal(t, []int{0, 3}, chart.State().Labels)
	assert.Empty(t, pub.Events())
}

func TestRollingChart_KeepsAtMostTenPoints(t *testing.T) {
	chart := NewRollingChart(&recordingPublisher{})
	chart.Init()

	for i := 1; i <= 25; i++ {
		chart.Update(withCount(snapshotOf(100, []string{"1", ""}), i))
		require.LessOrEqual(t, len(chart.Points()), MaxHistoryPoints)
	}

	labels := chart.State().Labels
	require.Len(t, labels, MaxHistoryPoints)
	assert.Equal(t, 16, labels[0])
	assert.Equal(t, 25, labels[len(labels)-1])
}

func TestRollingChart_FallsBackToOperationsLength(t *testing.T) {
	chart := NewRollingChart(&recordingPublisher{})
	chart.Init()

	chart.Update(snapshotOf(100, []string{"1", ""}, allocateOp("1", 100, 0)))
	chart.Update(snapshotOf(100, []string{"1", "2"}, allocateOp("1", 100, 0), allocateOp("2", 100, 1)))

	assert.Equal(t, []int{0, 1, 2}, chart.State().Labels)
}

func TestRollingChart_ResetRecreatesEmptyChart(t *testing.T) {
	chart := NewRollingChart(&recordingPublisher{})
	chart.Init()
	chart.Update(withCount(snapshotOf(100, []string{"1", ""}), 1))

	chart.Reset()

	state := chart.State()
	assert.Equal(t, 2, state.Instance)
	assert.Empty(t, state.Labels)
	assert.Empty(t, state.Allocated)
	assert.Empty(t, state.Free)

	// a fresh chart accepts any key again
	chart.Update(withCount(snapshotOf(100, []string{"1", ""}), 1))
	assert.Equal(t, []int{1}, chart.State().Labels)
}
