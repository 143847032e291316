package natsbus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
)

var (
	// ErrDisabled is returned by Connect when the nats section is disabled.
	ErrDisabled = errors.New("nats: disabled in configuration")

	// ErrConnect wraps the dial error from the initial connection.
	ErrConnect = errors.New("nats: connect failed")

	// ErrNotConnected is returned while the connection is down or closed.
	ErrNotConnected = errors.New("nats: not connected")

	// ErrEmptySubject is returned by Publish for an empty subject.
	ErrEmptySubject = errors.New("nats: empty subject")
)

// DefaultSubjectPrefix is used when subject_prefix is empty.
const DefaultSubjectPrefix = "cot.events"

const (
	dialTimeout   = 5 * time.Second
	reconnectWait = 2 * time.Second
)

// Logger receives connection state changes.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Client publishes enriched events. nats.Conn reconnects on its own;
// publishes made while it is reconnecting are buffered by the library.
type Client struct {
	conn   *nats.Conn
	prefix string
}

// Connect dials cfg.URL. A nil logger discards connection events.
func Connect(cfg config.NATSConfig, logger Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = noopLogger{}
	}

	conn, err := nats.Connect(cfg.URL, options(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.URL, err)
	}
	return &Client{conn: conn, prefix: subjectPrefix(cfg.SubjectPrefix)}, nil
}

func options(cfg config.NATSConfig, logger Logger) []nats.Option {
	wait := reconnectWait
	if cfg.ReconnectWait > 0 {
		wait = time.Duration(cfg.ReconnectWait) * time.Second
	}

	opts := []nats.Option{
		nats.Timeout(dialTimeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(wait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS connection lost", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts
}

// Subject is the subject for events received on a listener, for example
// cot.events.udp.9999.
func (c *Client) Subject(protocol string, port int) string {
	return Subject(c.prefix, protocol, port)
}

// Subject joins prefix (DefaultSubjectPrefix when empty), the lower-cased
// protocol and the port.
func Subject(prefix, protocol string, port int) string {
	return subjectPrefix(prefix) + "." + strings.ToLower(protocol) + "." + strconv.Itoa(port)
}

func subjectPrefix(prefix string) string {
	if p := strings.Trim(prefix, "."); p != "" {
		return p
	}
	return DefaultSubjectPrefix
}

// Publish sends one enriched event.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	switch {
	case subject == "":
		return ErrEmptySubject
	case ctx.Err() != nil:
		return fmt.Errorf("publishing to %s: %w", subject, ctx.Err())
	case !c.connected():
		return ErrNotConnected
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// HealthCheck measures a round trip to the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.connected() {
		return ErrNotConnected
	}
	if _, err := c.conn.RTT(); err != nil {
		return fmt.Errorf("nats round trip: %w", err)
	}
	return nil
}

// Close drains buffered publishes and closes the connection.
func (c *Client) Close() error {
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return fmt.Errorf("draining nats connection: %w", err)
	}
	return nil
}

func (c *Client) connected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
