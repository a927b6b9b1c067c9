package services

import (
	"fmt"
	"math"

	"memviz/internal/models"
)

// ProjectStats derives the analytics and memory info panels from a snapshot.
// It keeps no state.
func ProjectStats(snap *models.Snapshot) models.Stats {
	if snap == nil {
		return EmptyStats()
	}

	stats := models.Stats{
		PageFaults:      snap.PageFaults,
		HitMissText:     "0% / 0%",
		AllocatedFrames: snap.AllocatedFrames(),
		TotalFrames:     snap.FrameCount(),
		MemorySize:      snap.MemorySize,
		PageSize:        snap.PageSize,
	}

	if snap.MemoryAccesses > 0 {
		accesses := float64(snap.MemoryAccesses)
		stats.HitPct = round1(float64(snap.PageHits) / accesses * 100)
		stats.MissPct = round1(float64(snap.PageFaults) / accesses * 100)
		stats.HitMissText = fmt.Sprintf("%.1f%% / %.1f%%", stats.HitPct, stats.MissPct)
	}

	stats.UtilizationPct = utilizationPct(snap)
	stats.FreePct = round1(100 - stats.UtilizationPct)
	stats.UtilizationText = fmt.Sprintf("%.1f%%", stats.UtilizationPct)

	stats.MemoryInfoText = fmt.Sprintf("Memory: %d/%d frames", stats.AllocatedFrames, stats.TotalFrames)
	stats.TotalMemoryText = fmt.Sprintf("%d bytes", snap.MemorySize)
	stats.PageSizeText = fmt.Sprintf("%d bytes", snap.PageSize)

	return stats
}

// EmptyStats is what the panels show before a simulation starts
func EmptyStats() models.Stats {
	return models.Stats{
		HitMissText:     "0% / 0%",
		FreePct:         100,
		UtilizationText: "0%",
		MemoryInfoText:  "Memory: 0/0 frames",
		TotalMemoryText: "0 bytes",
		PageSizeText:    "0 bytes",
	}
}

// utilizationPct is the allocated share of frames, rounded to one decimal and
// clamped to [0, 100]
func utilizationPct(snap *models.Snapshot) float64 {
	total := snap.FrameCount()
	if total <= 0 {
		return 0
	}
	pct := round1(float64(snap.AllocatedFrames()) / float64(total) * 100)
	return math.Max(0, math.Min(100, pct))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
