package manager

import (
	"context"
	"sync"
	"time"

	"codeberg.org/nevala/sysprobe/internal/config"
	"codeberg.org/nevala/sysprobe/internal/errors"
	"codeberg.org/nevala/sysprobe/internal/logger"
	"codeberg.org/nevala/sysprobe/internal/provider"
	"codeberg.org/nevala/sysprobe/internal/remote"
	"codeberg.org/nevala/sysprobe/internal/snapshot"
	"golang.org/x/sync/singleflight"
)

// The probe interval doubles after each failed remote probe, bounded at
// maxBackoffFactor times the configured retry interval.
const maxBackoffFactor = 8

type cacheEntry struct {
	value     any
	fetchedAt time.Time
}

// Manager is the sole entry point for the presentation layer. It owns the
// remote transport, the local provider, and all cached state; every
// mutation of that state happens inside the per-kind single-flight path.
//
// Its getters never return an error: a nil snapshot means the value is
// unavailable from every source right now.
type Manager struct {
	cfg    *config.Config
	remote Transport
	local  provider.Provider

	group singleflight.Group

	mu            sync.Mutex
	mode          TransportMode
	remoteHealthy bool
	nextProbeAt   time.Time
	probeBackoff  time.Duration
	caches        map[snapshot.Kind]cacheEntry

	onRemoteConnect func()
	onFallback      func()
}

// New constructs a manager with both transports injected. Construct once
// at process start and Close at shutdown.
func New(cfg *config.Config, remoteTransport Transport, localProvider provider.Provider, opts ...Option) (*Manager, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if remoteTransport == nil || localProvider == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "both transports must be provided")
	}

	m := &Manager{
		cfg:          cfg,
		remote:       remoteTransport,
		local:        localProvider,
		mode:         UsingRemote,
		probeBackoff: cfg.RetryInterval,
		caches:       make(map[snapshot.Kind]cacheEntry),
	}

	if cfg.ForceFallback {
		m.mode = UsingLocal
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// CPUSnapshot returns the current CPU snapshot, or nil when unavailable
func (m *Manager) CPUSnapshot(ctx context.Context) *snapshot.CPU {
	v := m.fetch(ctx, snapshot.KindCPU,
		func(ctx context.Context) (any, error) { return m.remote.CPU(ctx) },
		m.localCPU)
	if v == nil {
		return nil
	}

	return v.(*snapshot.CPU)
}

// DiskSnapshot returns the current disk snapshot, or nil when unavailable
func (m *Manager) DiskSnapshot(ctx context.Context) *snapshot.Disk {
	v := m.fetch(ctx, snapshot.KindDisk,
		func(ctx context.Context) (any, error) { return m.remote.Disk(ctx) },
		m.localDisk)
	if v == nil {
		return nil
	}

	return v.(*snapshot.Disk)
}

// TemperatureSnapshot returns the current temperature snapshot, or nil
// when unavailable
func (m *Manager) TemperatureSnapshot(ctx context.Context) *snapshot.Temperature {
	v := m.fetch(ctx, snapshot.KindTemperature,
		func(ctx context.Context) (any, error) { return m.remote.Temperature(ctx) },
		m.localTemperature)
	if v == nil {
		return nil
	}

	return v.(*snapshot.Temperature)
}

// Ping reports whether any transport currently answers
func (m *Manager) Ping(ctx context.Context) bool {
	ok, _, _ := m.group.Do("ping", func() (any, error) {
		if !m.cfg.ForceFallback {
			if err := m.tryRemote(ctx, func(ctx context.Context) (any, error) {
				return nil, m.remote.Ping(ctx)
			}); err == nil {
				return true, nil
			}
			if !m.cfg.FallbackEnabled {
				return false, nil
			}
		}

		return m.local.Initialize(ctx) == nil, nil
	})

	return ok.(bool)
}

// Mode returns the transport the manager is currently using
func (m *Manager) Mode() TransportMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mode
}

// Close tears down both transports
func (m *Manager) Close() {
	m.remote.Close()
	if err := m.local.Cleanup(); err != nil {
		logger.Warn().Err(err).Msg("Failed to release sampling engine")
	}
}

// fetch serves a snapshot for one kind: cache hit, else one coalesced
// transport round per kind. Concurrent callers for the same kind share
// the in-flight result; different kinds proceed independently.
func (m *Manager) fetch(
	ctx context.Context,
	kind snapshot.Kind,
	viaRemote func(context.Context) (any, error),
	viaLocal func(context.Context) (any, error),
) any {
	if v, ok := m.cached(kind); ok {
		return v
	}

	v, err, _ := m.group.Do(string(kind), func() (any, error) {
		// A flight that just completed may have filled the cache
		if v, ok := m.cached(kind); ok {
			return v, nil
		}

		v, err := m.attempt(ctx, kind, viaRemote, viaLocal)
		if err != nil {
			// Both transports down: serve the stale value if we have one
			if v, ok := m.anyCached(kind); ok {
				logger.Debug().Str("kind", string(kind)).Msg("Serving stale snapshot")
				return v, nil
			}

			return nil, err
		}

		m.store(kind, v)

		return v, nil
	})
	if err != nil {
		logger.Debug().Err(err).Str("kind", string(kind)).Msg("Snapshot unavailable")
		return nil
	}

	return v
}

// attempt runs one acquisition round: active transport first, fallback to
// the local engine within the same call when the remote side fails.
func (m *Manager) attempt(
	ctx context.Context,
	kind snapshot.Kind,
	viaRemote func(context.Context) (any, error),
	viaLocal func(context.Context) (any, error),
) (any, error) {
	if m.cfg.ForceFallback {
		return viaLocal(ctx)
	}

	mode, probe := m.remoteEligible()
	if mode == UsingRemote || probe {
		var result any
		err := m.tryRemote(ctx, func(ctx context.Context) (any, error) {
			v, err := viaRemote(ctx)
			result = v
			return v, err
		})
		if err == nil {
			return result, nil
		}

		logger.Debug().Err(err).Str("kind", string(kind)).Msg("Remote fetch failed")

		if mode == UsingRemote && !m.cfg.FallbackEnabled {
			return nil, err
		}
	}

	return viaLocal(ctx)
}

// remoteEligible reports the current mode and whether a lazy recovery
// probe is due
func (m *Manager) remoteEligible() (TransportMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == UsingRemote {
		return UsingRemote, false
	}

	return UsingLocal, m.cfg.FallbackEnabled && !time.Now().Before(m.nextProbeAt)
}

// tryRemote connects if needed, runs the call, and records the outcome
// for mode selection and probe backoff
func (m *Manager) tryRemote(ctx context.Context, call func(context.Context) (any, error)) error {
	if err := m.connectRemote(ctx); err != nil {
		m.noteRemoteFailure()
		return err
	}

	if _, err := call(ctx); err != nil {
		m.noteRemoteFailure()
		return err
	}

	m.noteRemoteSuccess()

	return nil
}

// connectRemote dials the remote transport. An invalidated connection
// (reconnect budget exhausted during an outage) is revived here: the
// manager's retry pass is the explicit reconnect the terminal state
// waits for.
func (m *Manager) connectRemote(ctx context.Context) error {
	err := m.remote.Connect(ctx)
	if err != nil && errors.CodeOf(err) == remote.ErrInvalidated {
		return m.remote.Reconnect(ctx)
	}

	return err
}

func (m *Manager) noteRemoteSuccess() {
	m.mu.Lock()
	fire := !m.remoteHealthy
	m.remoteHealthy = true
	m.mode = UsingRemote
	m.probeBackoff = m.cfg.RetryInterval
	cb := m.onRemoteConnect
	m.mu.Unlock()

	if fire {
		logger.Info().Msg("Using remote metrics service")
		if cb != nil {
			cb()
		}
	}
}

func (m *Manager) noteRemoteFailure() {
	m.mu.Lock()
	wasRemote := m.mode == UsingRemote
	m.remoteHealthy = false

	if wasRemote {
		m.probeBackoff = m.cfg.RetryInterval
	} else {
		m.probeBackoff = min(m.probeBackoff*2, time.Duration(maxBackoffFactor)*m.cfg.RetryInterval)
	}
	m.nextProbeAt = time.Now().Add(m.probeBackoff)

	fire := wasRemote && m.cfg.FallbackEnabled
	if m.cfg.FallbackEnabled {
		m.mode = UsingLocal
	}
	cb := m.onFallback
	m.mu.Unlock()

	if fire {
		logger.Warn().Msg("Falling back to local sampling engine")
		if cb != nil {
			cb()
		}
	}
}

func (m *Manager) cached(kind snapshot.Kind) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.caches[kind]
	if !ok || time.Since(entry.fetchedAt) >= m.cfg.CacheInterval {
		return nil, false
	}

	return entry.value, true
}

// anyCached ignores the cache interval; used for stale-serve
func (m *Manager) anyCached(kind snapshot.Kind) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.caches[kind]
	if !ok {
		return nil, false
	}

	return entry.value, true
}

func (m *Manager) store(kind snapshot.Kind, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.caches[kind] = cacheEntry{value: v, fetchedAt: time.Now()}
}

// Local path: refresh precedes each get (pull model)
func (m *Manager) localCPU(ctx context.Context) (any, error) {
	if err := m.local.Refresh(ctx); err != nil {
		return nil, err
	}

	s, err := m.local.CPU(ctx)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (m *Manager) localDisk(ctx context.Context) (any, error) {
	if err := m.local.Refresh(ctx); err != nil {
		return nil, err
	}

	s, err := m.local.Disk(ctx)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (m *Manager) localTemperature(ctx context.Context) (any, error) {
	if err := m.local.Refresh(ctx); err != nil {
		return nil, err
	}

	s, err := m.local.Temperature(ctx)
	if err != nil {
		return nil, err
	}

	return s, nil
}
