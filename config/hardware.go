package config

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HardwareProfile is the one-time hardware-adaptation probe: it runs
// once at process startup and is stamped into every job's config
// snapshot, never re-probed mid-job.
type HardwareProfile struct {
	LogicalCPUs                int
	TotalMemoryBytes           uint64
	Accelerated                bool
	SuggestedMaxParallelRenders int
}

// DetectHardwareProfile inspects the host once at startup. Probe failures
// degrade to conservative defaults rather than aborting startup: a
// clip job that can't introspect the host should still run, just slower.
func DetectHardwareProfile() HardwareProfile {
	profile := HardwareProfile{
		LogicalCPUs:                 runtime.NumCPU(),
		SuggestedMaxParallelRenders: MaxParallelRendersDefault,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		profile.TotalMemoryBytes = vm.Total
	}

	if counts, err := cpu.Counts(true); err == nil && counts > 0 {
		profile.LogicalCPUs = counts
	}

	profile.Accelerated = hasHardwareAccelerator()
	if profile.Accelerated {
		profile.SuggestedMaxParallelRenders = profile.LogicalCPUs / 2
	} else {
		profile.SuggestedMaxParallelRenders = profile.LogicalCPUs / 4
	}
	if profile.SuggestedMaxParallelRenders < 1 {
		profile.SuggestedMaxParallelRenders = 1
	}

	return profile
}

// hasHardwareAccelerator is a coarse heuristic: ffmpeg builds that expose
// a GPU encoder are guessed indirectly from whether the first CPU entry
// reports at least 8 cores rather than
// probing ffmpeg itself, since doing so would mean spawning a subprocess
// before any job exists to charge it to.
func hasHardwareAccelerator() bool {
	info, err := cpu.Info()
	if err != nil || len(info) == 0 {
		return false
	}
	return info[0].Cores >= 8
}
