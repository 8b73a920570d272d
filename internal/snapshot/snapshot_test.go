package snapshot_test

import (
	"testing"

	"codeberg.org/nevala/sysprobe/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemperatureStatus(t *testing.T) {
	tests := []struct {
		temperature float64
		want        snapshot.Status
	}{
		{45.0, snapshot.StatusCool},
		{60.0, snapshot.StatusWarm},
		{75.0, snapshot.StatusHot},
		{90.0, snapshot.StatusCritical},
		// Boundary values land in the hotter bucket
		{49.999, snapshot.StatusCool},
		{50.0, snapshot.StatusWarm},
		{70.0, snapshot.StatusHot},
		{85.0, snapshot.StatusCritical},
		{0.0, snapshot.StatusCool},
		{-10.0, snapshot.StatusCool},
	}

	for _, tt := range tests {
		temp := snapshot.Temperature{CPUTemperature: tt.temperature}
		assert.Equal(t, tt.want, temp.Status(), "temperature %.3f", tt.temperature)
	}
}

func TestSimulatedTemperature(t *testing.T) {
	temp := snapshot.SimulatedTemperature(50.0)
	assert.True(t, temp.Simulated, "Expected simulated flag")
	assert.InDelta(t, 60.0, temp.CPUTemperature, 0.001)

	idle := snapshot.SimulatedTemperature(0)
	assert.InDelta(t, 35.0, idle.CPUTemperature, 0.001)
}

func TestCPURoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   snapshot.CPU
	}{
		{"zero", snapshot.CPU{}},
		{"typical", snapshot.CPU{
			TotalUsage:   33.3,
			CoreCount:    4,
			LoadAvg1:     1.25,
			LoadAvg5:     0.8,
			LoadAvg15:    0.5,
			FrequencyMHz: 3200,
		}},
		{"maximal", snapshot.CPU{
			TotalUsage:   100.0,
			CoreCount:    256,
			LoadAvg1:     512.0,
			LoadAvg5:     512.0,
			LoadAvg15:    512.0,
			FrequencyMHz: 6000,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := snapshot.EncodeCPU(&tt.in)
			require.NoError(t, err)

			out, err := snapshot.DecodeCPU(data)
			require.NoError(t, err)
			assert.Equal(t, tt.in, *out)
		})
	}
}

func TestDiskRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   snapshot.Disk
	}{
		{"zero", snapshot.Disk{}},
		{"empty strings", snapshot.Disk{
			TotalBytes:     1 << 40,
			AvailableBytes: 1 << 39,
			UsedBytes:      1 << 39,
			UsagePercent:   50.0,
		}},
		{"non-ascii", snapshot.Disk{
			MountPoint:   "/Volumes/Датенträger",
			Name:         "ディスク0",
			TotalBytes:   500_000_000_000,
			UsedBytes:    250_000_000_000,
			UsagePercent: 50.0,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := snapshot.EncodeDisk(&tt.in)
			require.NoError(t, err)

			out, err := snapshot.DecodeDisk(data)
			require.NoError(t, err)
			assert.Equal(t, tt.in, *out)
		})
	}
}

func TestTemperatureRoundTrip(t *testing.T) {
	in := snapshot.Temperature{CPUTemperature: 72.5, Simulated: true}

	data, err := snapshot.EncodeTemperature(&in)
	require.NoError(t, err)

	out, err := snapshot.DecodeTemperature(data)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestPongRoundTrip(t *testing.T) {
	data, err := snapshot.EncodePong()
	require.NoError(t, err)
	require.NoError(t, snapshot.DecodePong(data))
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := snapshot.DecodeCPU([]byte(`{"type":"exec","payload":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot_kind_not_allowed")
}

func TestDecodeRejectsKindMismatch(t *testing.T) {
	data, err := snapshot.EncodeDisk(&snapshot.Disk{MountPoint: "/"})
	require.NoError(t, err)

	// A disk envelope must not decode as a CPU snapshot
	_, err = snapshot.DecodeCPU(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot_kind_mismatch")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := snapshot.DecodeCPU([]byte("not json"))
	require.Error(t, err)

	_, err = snapshot.DecodeCPU([]byte(`{"type":"cpu"}`))
	require.Error(t, err, "missing payload must not decode into a default snapshot")
}
