package engine

// RawCPUStats is a CPU record as produced by the sampling engine
type RawCPUStats struct {
	TotalUsage   float64
	CoreCount    int
	LoadAvg1     float64
	LoadAvg5     float64
	LoadAvg15    float64
	FrequencyMHz uint64
}

// RawDiskStats is a disk record as produced by the sampling engine. Text
// fields are NUL-terminated byte buffers and may be nil.
type RawDiskStats struct {
	MountPoint     []byte
	Name           []byte
	TotalBytes     uint64
	AvailableBytes uint64
	UsedBytes      uint64
	UsagePercent   float64
}

// RawTemperatureStats is a temperature record as produced by the sampling
// engine. Simulated marks a value derived from CPU usage because no
// sensor was readable.
type RawTemperatureStats struct {
	CPUTemperature float64
	Simulated      bool
}

// Engine is the unmanaged sampling surface. Records returned by the
// Acquire calls are owned by the engine until handed back through the
// paired Free call; callers must not retain them afterwards. Acquire
// returns nil when the engine is uninitialized, not yet refreshed, or has
// no data for the kind. Refresh runs to completion once started.
type Engine interface {
	Init() error
	Refresh() error
	AcquireCPU() *RawCPUStats
	AcquireDisk() *RawDiskStats
	AcquireTemperature() *RawTemperatureStats
	FreeCPU(*RawCPUStats)
	FreeDisk(*RawDiskStats)
	FreeTemperature(*RawTemperatureStats)
	Shutdown()
}
