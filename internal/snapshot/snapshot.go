package snapshot

// Temperature status thresholds in degrees Celsius. Boundary values land
// in the hotter bucket.
const (
	warmThreshold     = 50.0
	hotThreshold      = 70.0
	criticalThreshold = 85.0
)

// Simulated temperature curve: 35°C at idle, +0.5°C per usage percent.
const (
	simulatedBase  = 35.0
	simulatedSlope = 0.5
)

// CPU is a point-in-time CPU measurement. Identical regardless of which
// transport produced it: percentages in [0,100], frequency in MHz.
type CPU struct {
	TotalUsage   float64 `json:"total_usage"`
	CoreCount    int     `json:"core_count"`
	LoadAvg1     float64 `json:"load_avg_1"`
	LoadAvg5     float64 `json:"load_avg_5"`
	LoadAvg15    float64 `json:"load_avg_15"`
	FrequencyMHz uint64  `json:"frequency_mhz"`
}

// Disk is a point-in-time measurement of the primary volume. Sizes are in
// bytes. UsedBytes+AvailableBytes may fall short of TotalBytes on
// filesystems with reserved blocks; the fields are reported as measured.
type Disk struct {
	MountPoint     string  `json:"mount_point"`
	Name           string  `json:"name"`
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	UsagePercent   float64 `json:"usage_percent"`
}

// Temperature is a point-in-time CPU temperature in degrees Celsius.
// Simulated marks a value derived from CPU usage rather than read from a
// sensor.
type Temperature struct {
	CPUTemperature float64 `json:"cpu_temperature"`
	Simulated      bool    `json:"simulated"`
}

// Status classifies a temperature reading
type Status string

const (
	StatusCool     Status = "cool"
	StatusWarm     Status = "warm"
	StatusHot      Status = "hot"
	StatusCritical Status = "critical"
)

// Status derives the thermal status from the temperature alone
func (t Temperature) Status() Status {
	switch {
	case t.CPUTemperature < warmThreshold:
		return StatusCool
	case t.CPUTemperature < hotThreshold:
		return StatusWarm
	case t.CPUTemperature < criticalThreshold:
		return StatusHot
	default:
		return StatusCritical
	}
}

// SimulatedTemperature derives a temperature reading from CPU usage for
// hosts without a readable thermal sensor.
func SimulatedTemperature(cpuUsage float64) Temperature {
	return Temperature{
		CPUTemperature: simulatedBase + cpuUsage*simulatedSlope,
		Simulated:      true,
	}
}
