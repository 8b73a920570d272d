package provider

import (
	"context"

	"codeberg.org/nevala/sysprobe/internal/snapshot"
)

// Provider is the capability contract a snapshot source must satisfy:
// the local engine adapter, the exporter's provider, and test doubles all
// implement it.
//
// Initialize is idempotent and invoked lazily at most once before first
// use. Refresh must precede each get (pull model). The gets return an
// error when the provider is not initialized or the source reports no
// data; callers translate that into absence. After Cleanup every get
// fails until the provider is initialized again.
type Provider interface {
	Initialize(ctx context.Context) error
	Refresh(ctx context.Context) error
	CPU(ctx context.Context) (*snapshot.CPU, error)
	Disk(ctx context.Context) (*snapshot.Disk, error)
	Temperature(ctx context.Context) (*snapshot.Temperature, error)
	Cleanup() error
}
