package remote

import (
	"context"
	"sync"
	"time"

	"codeberg.org/nevala/sysprobe/internal/errors"
	"codeberg.org/nevala/sysprobe/internal/logger"
	"codeberg.org/nevala/sysprobe/internal/snapshot"
	"github.com/nats-io/nats.go"
)

// ConnectionState tracks the lifecycle of the service connection
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateInterrupted  ConnectionState = "interrupted"
	StateInvalidated  ConnectionState = "invalidated"
)

// Request operations exposed by the metrics service. Appended to the
// service name to form the full subject.
const (
	opPing        = "ping"
	opCPU         = "cpu"
	opDisk        = "disk"
	opTemperature = "temperature"
)

const (
	maxReconnects = 10
	reconnectWait = 2 * time.Second
)

// Client owns exactly one connection to the metrics service. Requests are
// single request/single reply with a bounded timeout; replies pass
// through the snapshot codec allow-list before anything else sees them.
type Client struct {
	mu       sync.Mutex
	nc       *nats.Conn
	state    ConnectionState
	dialDone chan struct{} // non-nil while a dial is in flight
	cfg      Config
}

// NewClient creates a client in the Disconnected state. No connection is
// attempted until Connect.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		state: StateDisconnected,
		cfg:   cfg,
	}, nil
}

// Connect dials the service. Interrupted connections retry transparently;
// once the client is Invalidated only Reconnect can revive it. Concurrent
// callers share a single dial: whoever finds the client Disconnected
// performs it, everyone else waits for the outcome.
func (c *Client) Connect(ctx context.Context) error {
	errFactory := errors.New()

	for {
		c.mu.Lock()
		switch c.state {
		case StateConnected, StateInterrupted:
			c.mu.Unlock()
			return nil
		case StateInvalidated:
			c.mu.Unlock()
			return errFactory.New(ErrInvalidated)
		case StateConnecting:
			done := c.dialDone
			c.mu.Unlock()

			select {
			case <-done:
				// Re-check whatever state the dial left behind
				continue
			case <-ctx.Done():
				return errFactory.Wrap(errors.ErrTimeout, ctx.Err())
			}
		default:
		}

		done := make(chan struct{})
		c.dialDone = done
		c.state = StateConnecting
		c.mu.Unlock()

		return c.dial(ctx, done)
	}
}

// dial performs the single in-flight connection attempt claimed in
// Connect and publishes its outcome to any waiters.
func (c *Client) dial(ctx context.Context, done chan struct{}) error {
	errFactory := errors.New()

	dialTimeout := c.cfg.RequestTimeout
	if d, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(d)
	}

	nc, err := nats.Connect(c.cfg.ServerURL,
		nats.Name(c.cfg.ServiceName),
		nats.Timeout(dialTimeout),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	)

	c.mu.Lock()
	if err != nil {
		c.state = StateDisconnected
	} else {
		c.nc = nc
		c.state = StateConnected
	}
	c.dialDone = nil
	c.mu.Unlock()
	close(done)

	if err != nil {
		return errFactory.Wrap(errors.ErrConnection, err)
	}

	logger.Debug().
		Str("service", c.cfg.ServiceName).
		Str("url", c.cfg.ServerURL).
		Msg("Connected to metrics service")

	return nil
}

// Reconnect moves an Invalidated client back to Disconnected and dials
// again. This is the only way out of the Invalidated state.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	old := c.nc
	c.nc = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	return c.Connect(ctx)
}

// State returns the current connection state
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Ping checks that the service answers on its channel
func (c *Client) Ping(ctx context.Context) error {
	data, err := c.request(ctx, opPing)
	if err != nil {
		return err
	}

	if err := snapshot.DecodePong(data); err != nil {
		errFactory := errors.New()
		return errFactory.Wrap(errors.ErrProtocol, err)
	}

	return nil
}

// CPU requests a CPU snapshot from the service
func (c *Client) CPU(ctx context.Context) (*snapshot.CPU, error) {
	data, err := c.request(ctx, opCPU)
	if err != nil {
		return nil, err
	}

	s, err := snapshot.DecodeCPU(data)
	if err != nil {
		errFactory := errors.New()
		return nil, errFactory.Wrap(errors.ErrProtocol, err)
	}

	return s, nil
}

// Disk requests a disk snapshot from the service
func (c *Client) Disk(ctx context.Context) (*snapshot.Disk, error) {
	data, err := c.request(ctx, opDisk)
	if err != nil {
		return nil, err
	}

	s, err := snapshot.DecodeDisk(data)
	if err != nil {
		errFactory := errors.New()
		return nil, errFactory.Wrap(errors.ErrProtocol, err)
	}

	return s, nil
}

// Temperature requests a temperature snapshot from the service
func (c *Client) Temperature(ctx context.Context) (*snapshot.Temperature, error) {
	data, err := c.request(ctx, opTemperature)
	if err != nil {
		return nil, err
	}

	s, err := snapshot.DecodeTemperature(data)
	if err != nil {
		errFactory := errors.New()
		return nil, errFactory.Wrap(errors.ErrProtocol, err)
	}

	return s, nil
}

// Close tears the connection down and leaves the client Disconnected
func (c *Client) Close() {
	c.mu.Lock()
	nc := c.nc
	c.nc = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if nc != nil {
		nc.Close()
	}
}

func (c *Client) request(ctx context.Context, op string) ([]byte, error) {
	errFactory := errors.New()

	c.mu.Lock()
	nc := c.nc
	state := c.state
	c.mu.Unlock()

	if nc == nil {
		return nil, errFactory.WithData(errors.ErrConnection, string(state))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	msg, err := nc.RequestWithContext(reqCtx, c.subject(op), nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return nil, errFactory.Wrap(errors.ErrTimeout, err)
		}

		return nil, errFactory.Wrap(errors.ErrConnection, err)
	}

	return msg.Data, nil
}

func (c *Client) subject(op string) string {
	return c.cfg.ServiceName + "." + op
}

// Peer went away; the underlying connection retries on its own. Handlers
// compare connection identity so callbacks from an already replaced
// connection cannot corrupt the state machine.
func (c *Client) handleDisconnect(nc *nats.Conn, err error) {
	c.mu.Lock()
	if c.nc != nc {
		c.mu.Unlock()
		return
	}
	c.state = StateInterrupted
	c.mu.Unlock()

	if err != nil {
		logger.Warn().Err(err).Msg("Metrics service connection interrupted")
	}
}

func (c *Client) handleReconnect(nc *nats.Conn) {
	c.mu.Lock()
	if c.nc != nc {
		c.mu.Unlock()
		return
	}
	c.state = StateConnected
	c.mu.Unlock()

	logger.Info().Msg("Metrics service connection restored")
}

// Retries exhausted or connection revoked: terminal until an explicit
// Reconnect. An intentional Close nils the connection first, so its
// callback is ignored here.
func (c *Client) handleClosed(nc *nats.Conn) {
	c.mu.Lock()
	if c.nc != nc {
		c.mu.Unlock()
		return
	}
	c.nc = nil
	c.state = StateInvalidated
	c.mu.Unlock()

	logger.Warn().Msg("Metrics service connection invalidated")
}
