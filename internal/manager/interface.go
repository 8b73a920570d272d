package manager

import (
	"context"

	"codeberg.org/nevala/sysprobe/internal/snapshot"
)

// TransportMode says which transport the manager currently trusts
type TransportMode string

const (
	UsingRemote TransportMode = "remote"
	UsingLocal  TransportMode = "local"
)

// Transport is the remote surface the manager consumes. Satisfied by
// remote.Client and by test doubles. Reconnect is the explicit revival
// call an invalidated connection waits for.
type Transport interface {
	Connect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	CPU(ctx context.Context) (*snapshot.CPU, error)
	Disk(ctx context.Context) (*snapshot.Disk, error)
	Temperature(ctx context.Context) (*snapshot.Temperature, error)
	Close()
}

// Option configures optional manager behavior
type Option func(*Manager)

// WithOnRemoteConnect registers a callback fired when the remote
// transport becomes usable. Observability side-channel only.
func WithOnRemoteConnect(fn func()) Option {
	return func(m *Manager) {
		m.onRemoteConnect = fn
	}
}

// WithOnFallback registers a callback fired when the manager falls back
// to the local sampling engine. Observability side-channel only.
func WithOnFallback(fn func()) Option {
	return func(m *Manager) {
		m.onFallback = fn
	}
}
