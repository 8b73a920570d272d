package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/nevala/sysprobe/internal/config"
	"codeberg.org/nevala/sysprobe/internal/engine"
	"codeberg.org/nevala/sysprobe/internal/errors"
	"codeberg.org/nevala/sysprobe/internal/local"
	"codeberg.org/nevala/sysprobe/internal/logger"
	"codeberg.org/nevala/sysprobe/internal/pid"
	"codeberg.org/nevala/sysprobe/internal/provider"
	"codeberg.org/nevala/sysprobe/internal/snapshot"
	"github.com/nats-io/nats.go"
)

// sysprobed is the metrics service: it registers the service channel and
// answers the four snapshot operations from the local sampling engine.

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
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	prov := local.New(engine.New())
	if err := prov.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize sampling engine")
	}
	defer func() {
		if err := prov.Cleanup(); err != nil {
			logger.Error().Err(err).Msg("failed to release sampling engine")
		}
	}()

	exp := &exporter{prov: prov}
	if err := exp.serve(ctx, cfg.ServerURL, cfg.ServiceName); err != nil {
		logger.Fatal().Err(err).Msg("exporter failed")
	}

	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

type exporter struct {
	prov provider.Provider
}

// serve registers the service channel and blocks until ctx is cancelled
func (e *exporter) serve(ctx context.Context, serverURL, serviceName string) error {
	errFactory := errors.New()

	nc, err := nats.Connect(serverURL,
		nats.Name(serviceName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return errFactory.Wrap(errors.ErrConnection, err)
	}
	defer nc.Drain() //nolint:errcheck

	handlers := map[string]nats.MsgHandler{
		serviceName + ".ping":        e.handlePing,
		serviceName + ".cpu":         e.handleCPU,
		serviceName + ".disk":        e.handleDisk,
		serviceName + ".temperature": e.handleTemperature,
	}

	for subject, handler := range handlers {
		if _, err := nc.Subscribe(subject, handler); err != nil {
			return errFactory.Wrap(errors.ErrInitFailed, err)
		}
	}

	logger.Info().
		Str("service", serviceName).
		Str("url", serverURL).
		Msg("Metrics service registered")

	<-ctx.Done()

	return nil
}

func (e *exporter) handlePing(msg *nats.Msg) {
	data, err := snapshot.EncodePong()
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode pong")
		return
	}

	e.respond(msg, data)
}

func (e *exporter) handleCPU(msg *nats.Msg) {
	ctx := context.Background()
	if err := e.prov.Refresh(ctx); err != nil {
		logger.Error().Err(err).Msg("refresh failed")
		return
	}

	s, err := e.prov.CPU(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("cpu snapshot failed")
		return
	}

	data, err := snapshot.EncodeCPU(s)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode cpu snapshot")
		return
	}

	e.respond(msg, data)
}

func (e *exporter) handleDisk(msg *nats.Msg) {
	ctx := context.Background()
	if err := e.prov.Refresh(ctx); err != nil {
		logger.Error().Err(err).Msg("refresh failed")
		return
	}

	s, err := e.prov.Disk(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("disk snapshot failed")
		return
	}

	data, err := snapshot.EncodeDisk(s)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode disk snapshot")
		return
	}

	e.respond(msg, data)
}

func (e *exporter) handleTemperature(msg *nats.Msg) {
	ctx := context.Background()
	if err := e.prov.Refresh(ctx); err != nil {
		logger.Error().Err(err).Msg("refresh failed")
		return
	}

	s, err := e.prov.Temperature(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("temperature snapshot failed")
		return
	}

	data, err := snapshot.EncodeTemperature(s)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode temperature snapshot")
		return
	}

	e.respond(msg, data)
}

// A request that cannot be served gets no reply; the client's bounded
// timeout turns that into an explicit failure on its side.
func (e *exporter) respond(msg *nats.Msg, data []byte) {
	if err := msg.Respond(data); err != nil {
		logger.Error().Err(err).Str("subject", msg.Subject).Msg("failed to respond")
	}
}
