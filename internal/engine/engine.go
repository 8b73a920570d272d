package engine

import (
	"strings"
	"sync"

	"codeberg.org/nevala/sysprobe/internal/errors"
	"codeberg.org/nevala/sysprobe/internal/logger"
	"codeberg.org/nevala/sysprobe/internal/snapshot"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/sensors"
)

const (
	rootMount   = "/"
	maxSaneTemp = 150.0
)

// Sensor labels that identify a CPU temperature source, by platform
var cpuSensorLabels = []string{
	"coretemp",
	"k10temp",
	"cpu_thermal",
	"soc_thermal",
	"tdie",
	"cpu",
}

// systemEngine samples the host through gopsutil. It keeps one record per
// kind, replaced on each refresh; Acquire hands the live record out and
// the paired Free returns ownership.
type systemEngine struct {
	mu          sync.Mutex
	initialized bool
	cpuStats    *RawCPUStats
	diskStats   *RawDiskStats
	tempStats   *RawTemperatureStats
}

// New creates an engine backed by the host's sampling facilities
func New() Engine {
	return &systemEngine{}
}

func (e *systemEngine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	// Prime the usage baseline; the first delta-based reading needs a
	// previous sample.
	if _, err := cpu.Percent(0, false); err != nil {
		errFactory := errors.New()
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}

	e.initialized = true
	logger.Debug().Msg("Sampling engine initialized")

	return nil
}

func (e *systemEngine) Refresh() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	errFactory := errors.New()
	if !e.initialized {
		return errFactory.New(errors.ErrEngineNotInitialized)
	}

	cpuStats, err := sampleCPU()
	if err != nil {
		return errFactory.Wrap(ErrSampleFailed, err)
	}

	diskStats, err := sampleDisk()
	if err != nil {
		return errFactory.Wrap(ErrSampleFailed, err)
	}

	e.cpuStats = cpuStats
	e.diskStats = diskStats
	e.tempStats = sampleTemperature(cpuStats.TotalUsage)

	return nil
}

func (e *systemEngine) AcquireCPU() *RawCPUStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}

	return e.cpuStats
}

func (e *systemEngine) AcquireDisk() *RawDiskStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}

	return e.diskStats
}

func (e *systemEngine) AcquireTemperature() *RawTemperatureStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}

	return e.tempStats
}

// The live records are garbage collected; Free exists to honor the
// paired-release contract of the sampling surface.
func (e *systemEngine) FreeCPU(*RawCPUStats)                 {}
func (e *systemEngine) FreeDisk(*RawDiskStats)               {}
func (e *systemEngine) FreeTemperature(*RawTemperatureStats) {}

func (e *systemEngine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.initialized = false
	e.cpuStats = nil
	e.diskStats = nil
	e.tempStats = nil
}

func sampleCPU() (*RawCPUStats, error) {
	percentages, err := cpu.Percent(0, false)
	if err != nil {
		return nil, err
	}

	stats := &RawCPUStats{}
	if len(percentages) > 0 {
		stats.TotalUsage = percentages[0]
	}

	if counts, err := cpu.Counts(true); err == nil {
		stats.CoreCount = counts
	}

	// Load averages are unsupported on some platforms; report zeros there
	if avg, err := load.Avg(); err == nil {
		stats.LoadAvg1 = avg.Load1
		stats.LoadAvg5 = avg.Load5
		stats.LoadAvg15 = avg.Load15
	}

	if info, err := cpu.Info(); err == nil && len(info) > 0 {
		if info[0].Mhz > 0 {
			stats.FrequencyMHz = uint64(info[0].Mhz)
		}
	}

	return stats, nil
}

func sampleDisk() (*RawDiskStats, error) {
	usage, err := disk.Usage(rootMount)
	if err != nil {
		return nil, err
	}

	stats := &RawDiskStats{
		MountPoint:     terminated(usage.Path),
		TotalBytes:     usage.Total,
		AvailableBytes: usage.Free,
		UsedBytes:      usage.Used,
		UsagePercent:   usage.UsedPercent,
	}

	if partitions, err := disk.Partitions(false); err == nil {
		for _, p := range partitions {
			if p.Mountpoint == rootMount {
				stats.Name = terminated(p.Device)
				break
			}
		}
	}

	return stats, nil
}

func sampleTemperature(cpuUsage float64) *RawTemperatureStats {
	temps, err := sensors.SensorsTemperatures()
	if err == nil {
		for _, label := range cpuSensorLabels {
			for _, t := range temps {
				if !strings.Contains(strings.ToLower(t.SensorKey), label) {
					continue
				}
				if t.Temperature <= 0 || t.Temperature > maxSaneTemp {
					continue
				}

				return &RawTemperatureStats{CPUTemperature: t.Temperature}
			}
		}
	}

	// No readable sensor: derive from usage so the thermal status stays
	// meaningful.
	return simulatedReading(cpuUsage)
}

// simulatedReading applies the shared simulation curve to a usage sample
func simulatedReading(cpuUsage float64) *RawTemperatureStats {
	sim := snapshot.SimulatedTemperature(cpuUsage)

	return &RawTemperatureStats{
		CPUTemperature: sim.CPUTemperature,
		Simulated:      sim.Simulated,
	}
}

// terminated copies s into a NUL-terminated buffer, the form the raw
// records carry text in.
func terminated(s string) []byte {
	return append([]byte(s), 0)
}
