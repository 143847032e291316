package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
)

var (
	// ErrDisabled is returned by Connect when the influxdb section is off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
	// ErrUnreachable wraps a failed or unhealthy ping.
	ErrUnreachable = errors.New("influxdb: server unreachable")
	// ErrClosed is returned by HealthCheck after Close.
	ErrClosed = errors.New("influxdb: client closed")
)

const (
	pingTimeout          = 5 * time.Second
	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client batches telemetry points through the non-blocking write API.
// Points written after Close are dropped.
type Client struct {
	influx  influxdb2.Client
	writes  api.WriteAPI
	open    atomic.Bool
	onError atomic.Pointer[func(error)]
}

// Connect creates a client for cfg and pings the server once.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(batch).
			SetFlushInterval(uint(flush.Milliseconds())))

	if err := ping(context.Background(), influx); err != nil {
		influx.Close()
		return nil, err
	}

	c := &Client{influx: influx, writes: influx.WriteAPI(cfg.Org, cfg.Bucket)}
	c.open.Store(true)
	go c.forwardErrors(c.writes.Errors())
	return c, nil
}

func ping(ctx context.Context, influx influxdb2.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ok, err := influx.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	if !ok {
		return fmt.Errorf("%w: ping reported unhealthy", ErrUnreachable)
	}
	return nil
}

func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		if fn := c.onError.Load(); fn != nil {
			(*fn)(err)
		}
	}
}

// SetOnError registers the callback for asynchronous write failures.
func (c *Client) SetOnError(fn func(error)) {
	c.onError.Store(&fn)
}

// Close flushes buffered points and releases the client. It is safe to call
// more than once.
func (c *Client) Close() error {
	if c.influx == nil || !c.open.CompareAndSwap(true, false) {
		return nil
	}
	c.writes.Flush()
	c.influx.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.open.Load() {
		return ErrClosed
	}
	return ping(ctx, c.influx)
}
