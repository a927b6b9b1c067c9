package services

import (
	"os"

	"github.com/shirou/gopsutil/v3/mem"

	"memviz/internal/models"
)

const GB = 1024 * 1024 * 1024

// GetHostMemory reads the real memory of the machine running the dashboard,
// shown next to the simulated memory for comparison
func GetHostMemory() (*models.HostMemory, error) {
	virtualMemory, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}

	pageSize := os.Getpagesize()
	frames := uint64(0)
	if pageSize > 0 {
		frames = virtualMemory.Total / uint64(pageSize)
	}

	return &models.HostMemory{
		TotalGB:      float64(virtualMemory.Total) / GB,
		UsedGB:       float64(virtualMemory.Used) / GB,
		AvailableGB:  float64(virtualMemory.Available) / GB,
		UsagePercent: round1(virtualMemory.UsedPercent),
		PageSize:     pageSize,
		TotalFrames:  frames,
	}, nil
}
