package remote

import (
	"time"

	"codeberg.org/nevala/sysprobe/internal/errors"
)

type Config struct {
	// ServiceName must match the exporter's registration exactly. A
	// mismatch yields a connection whose requests never get a responder.
	ServiceName    string
	ServerURL      string
	RequestTimeout time.Duration
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.ServiceName == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "service name must not be empty")
	}
	if c.ServerURL == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "server URL must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.RequestTimeout.String())
	}

	return nil
}
