package local

import (
	"context"
	"sync"

	"codeberg.org/nevala/sysprobe/internal/engine"
	"codeberg.org/nevala/sysprobe/internal/errors"
	"codeberg.org/nevala/sysprobe/internal/logger"
	"codeberg.org/nevala/sysprobe/internal/provider"
	"codeberg.org/nevala/sysprobe/internal/snapshot"
)

// Adapter exposes the sampling engine through the provider contract. It
// owns the engine handle: raw records never leave this package, and every
// acquired record is returned through its paired Free exactly once.
type Adapter struct {
	mu          sync.Mutex
	eng         engine.Engine
	initialized bool
}

var _ provider.Provider = (*Adapter)(nil)

// New creates an adapter around the given engine
func New(eng engine.Engine) *Adapter {
	return &Adapter{eng: eng}
}

// Initialize initializes the engine. Safe to call repeatedly; only the
// first call reaches the engine.
func (a *Adapter) Initialize(ctx context.Context) error {
	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(errors.ErrTimeout, ctx.Err())
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.initializeLocked()
}

// Refresh pulls a fresh sample into the engine. Initializes lazily on
// first use. The engine call runs to completion once started.
func (a *Adapter) Refresh(ctx context.Context) error {
	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(errors.ErrTimeout, ctx.Err())
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.initializeLocked(); err != nil {
		return err
	}

	return a.eng.Refresh()
}

// CPU returns the last refreshed CPU snapshot
func (a *Adapter) CPU(_ context.Context) (*snapshot.CPU, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	errFactory := errors.New()
	if !a.initialized {
		return nil, errFactory.New(errors.ErrEngineNotInitialized)
	}

	raw := a.eng.AcquireCPU()
	if raw == nil {
		return nil, errFactory.New(errors.ErrEngineNoData)
	}
	defer a.eng.FreeCPU(raw)

	return &snapshot.CPU{
		TotalUsage:   raw.TotalUsage,
		CoreCount:    raw.CoreCount,
		LoadAvg1:     raw.LoadAvg1,
		LoadAvg5:     raw.LoadAvg5,
		LoadAvg15:    raw.LoadAvg15,
		FrequencyMHz: raw.FrequencyMHz,
	}, nil
}

// Disk returns the last refreshed disk snapshot
func (a *Adapter) Disk(_ context.Context) (*snapshot.Disk, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	errFactory := errors.New()
	if !a.initialized {
		return nil, errFactory.New(errors.ErrEngineNotInitialized)
	}

	raw := a.eng.AcquireDisk()
	if raw == nil {
		return nil, errFactory.New(errors.ErrEngineNoData)
	}
	defer a.eng.FreeDisk(raw)

	return &snapshot.Disk{
		MountPoint:     safeString(raw.MountPoint),
		Name:           safeString(raw.Name),
		TotalBytes:     raw.TotalBytes,
		AvailableBytes: raw.AvailableBytes,
		UsedBytes:      raw.UsedBytes,
		UsagePercent:   raw.UsagePercent,
	}, nil
}

// Temperature returns the last refreshed temperature snapshot
func (a *Adapter) Temperature(_ context.Context) (*snapshot.Temperature, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	errFactory := errors.New()
	if !a.initialized {
		return nil, errFactory.New(errors.ErrEngineNotInitialized)
	}

	raw := a.eng.AcquireTemperature()
	if raw == nil {
		return nil, errFactory.New(errors.ErrEngineNoData)
	}
	defer a.eng.FreeTemperature(raw)

	return &snapshot.Temperature{
		CPUTemperature: raw.CPUTemperature,
		Simulated:      raw.Simulated,
	}, nil
}

// Cleanup releases engine resources. Every get fails afterwards until the
// adapter is initialized again.
func (a *Adapter) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return nil
	}

	a.eng.Shutdown()
	a.initialized = false
	logger.Debug().Msg("Sampling engine released")

	return nil
}

func (a *Adapter) initializeLocked() error {
	if a.initialized {
		return nil
	}

	if err := a.eng.Init(); err != nil {
		errFactory := errors.New()
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}

	a.initialized = true

	return nil
}
