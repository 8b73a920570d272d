package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/nevala/sysprobe/internal/config"
	"codeberg.org/nevala/sysprobe/internal/engine"
	"codeberg.org/nevala/sysprobe/internal/local"
	"codeberg.org/nevala/sysprobe/internal/logger"
	"codeberg.org/nevala/sysprobe/internal/manager"
	"codeberg.org/nevala/sysprobe/internal/remote"
)

// sysprobe polls the metrics manager and logs the snapshots it gets,
// falling back to the local engine when the service is unreachable.

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	client, err := remote.NewClient(remote.Config{
		ServiceName:    cfg.ServiceName,
		ServerURL:      cfg.ServerURL,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create remote client")
	}

	mgr, err := manager.New(cfg, client, local.New(engine.New()),
		manager.WithOnRemoteConnect(func() {
			logger.Info().Msg("Remote metrics service available")
		}),
		manager.WithOnFallback(func() {
			logger.Warn().Msg("Remote metrics service unavailable, using local engine")
		}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create metrics manager")
	}
	defer mgr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	loop(ctx, mgr)

	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func loop(ctx context.Context, mgr *manager.Manager) {
	interval := time.Duration(cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logSnapshots(ctx, mgr)
		}
	}
}

func logSnapshots(ctx context.Context, mgr *manager.Manager) {
	event := logger.Info().Str("mode", string(mgr.Mode()))

	if cpu := mgr.CPUSnapshot(ctx); cpu != nil {
		event = event.
			Float64("cpu_usage", cpu.TotalUsage).
			Int("cores", cpu.CoreCount).
			Float64("load_1", cpu.LoadAvg1)
	}

	if disk := mgr.DiskSnapshot(ctx); disk != nil {
		event = event.
			Str("mount", disk.MountPoint).
			Uint64("disk_used", disk.UsedBytes).
			Float64("disk_usage", disk.UsagePercent)
	}

	if temp := mgr.TemperatureSnapshot(ctx); temp != nil {
		event = event.
			Float64("temperature", temp.CPUTemperature).
			Str("status", string(temp.Status())).
			Bool("simulated", temp.Simulated)
	}

	event.Msg("")
}
