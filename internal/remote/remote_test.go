package remote

import (
	"context"
	"testing"
	"time"

	"codeberg.org/nevala/sysprobe/internal/errors"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClientConfig() Config {
	return Config{
		ServiceName:    "com.sysprobe.metrics",
		ServerURL:      "nats://127.0.0.1:1",
		RequestTimeout: 50 * time.Millisecond,
	}
}

func TestNewClientStartsDisconnected(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)
	assert.Equal(t, StateDisconnected, client.State())
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		errCode errors.ErrorCode
	}{
		{
			name:    "empty service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			errCode: errors.ErrInvalidConfig,
		},
		{
			name:    "empty server URL",
			mutate:  func(c *Config) { c.ServerURL = "" },
			errCode: errors.ErrInvalidConfig,
		},
		{
			name:    "zero request timeout",
			mutate:  func(c *Config) { c.RequestTimeout = 0 },
			errCode: errors.ErrInvalidInterval,
		},
		{
			name:    "negative request timeout",
			mutate:  func(c *Config) { c.RequestTimeout = -time.Second },
			errCode: errors.ErrInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testClientConfig()
			tt.mutate(&cfg)

			client, err := NewClient(cfg)
			require.Error(t, err)
			assert.Nil(t, client)
			assert.Equal(t, tt.errCode, errors.CodeOf(err))
		})
	}
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)

	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrConnection, errors.CodeOf(err))
	assert.Equal(t, StateDisconnected, client.State())
}

func TestConnectRefusedWhileInvalidated(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)
	client.state = StateInvalidated

	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrInvalidated, errors.CodeOf(err))
	assert.Equal(t, StateInvalidated, client.State())
}

func TestConnectWaitsForInFlightDial(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)

	done := make(chan struct{})
	client.mu.Lock()
	client.state = StateConnecting
	client.dialDone = done
	client.mu.Unlock()

	go func() {
		time.Sleep(10 * time.Millisecond)
		client.mu.Lock()
		client.state = StateConnected
		client.dialDone = nil
		client.mu.Unlock()
		close(done)
	}()

	// The second caller joins the dial and returns its outcome instead
	// of failing spuriously.
	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, StateConnected, client.State())
}

func TestConnectWaitHonorsContext(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)

	client.mu.Lock()
	client.state = StateConnecting
	client.dialDone = make(chan struct{})
	client.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err = client.Connect(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrTimeout, errors.CodeOf(err))
}

func TestConnectNoopWhenAlreadyConnected(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)
	client.state = StateConnected

	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, StateConnected, client.State())
}

func TestDisconnectHandlerMarksInterrupted(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)
	client.state = StateConnected

	client.handleDisconnect(nil, assert.AnError)
	assert.Equal(t, StateInterrupted, client.State())
}

func TestReconnectHandlerRestoresConnected(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)
	client.state = StateInterrupted

	client.handleReconnect(nil)
	assert.Equal(t, StateConnected, client.State())
}

func TestClosedHandlerInvalidates(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)
	client.state = StateInterrupted

	client.handleClosed(nil)
	assert.Equal(t, StateInvalidated, client.State())
}

func TestReconnectRevivesInvalidatedState(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)
	client.state = StateInvalidated

	// No server is listening, so the dial itself fails, but the client
	// must first leave the terminal state and end up Disconnected rather
	// than Invalidated.
	err = client.Reconnect(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrConnection, errors.CodeOf(err))
	assert.Equal(t, StateDisconnected, client.State())
}

func TestCloseIsIdempotent(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)

	client.Close()
	client.Close()
	assert.Equal(t, StateDisconnected, client.State())
}

func TestRequestWithoutConnection(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)

	_, err = client.CPU(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrConnection, errors.CodeOf(err))

	_, err = client.Disk(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrConnection, errors.CodeOf(err))

	_, err = client.Temperature(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrConnection, errors.CodeOf(err))

	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrConnection, errors.CodeOf(err))
}

func TestSubjectComposition(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)

	assert.Equal(t, "com.sysprobe.metrics.ping", client.subject(opPing))
	assert.Equal(t, "com.sysprobe.metrics.cpu", client.subject(opCPU))
	assert.Equal(t, "com.sysprobe.metrics.disk", client.subject(opDisk))
	assert.Equal(t, "com.sysprobe.metrics.temperature", client.subject(opTemperature))
}

func TestStaleHandlerCallbacksIgnored(t *testing.T) {
	client, err := NewClient(testClientConfig())
	require.NoError(t, err)
	client.state = StateConnected

	// Callback from a connection the client no longer owns must not
	// touch the state machine.
	stale := &nats.Conn{}
	client.handleDisconnect(stale, assert.AnError)
	assert.Equal(t, StateConnected, client.State())

	client.handleClosed(stale)
	assert.Equal(t, StateConnected, client.State())
}
