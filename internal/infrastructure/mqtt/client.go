package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
)

// Errors returned by the client. Broker errors are wrapped beneath them.
var (
	ErrNotConnected = errors.New("mqtt: client not connected")
	ErrConnect      = errors.New("mqtt: connect failed")
	ErrPublish      = errors.New("mqtt: publish failed")
	ErrSubscribe    = errors.New("mqtt: subscribe failed")
)

// Logger is the logging surface used for reconnects and command handler
// failures. *logging.Logger satisfies it.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler receives one command payload. A returned error is logged.
type MessageHandler func(topic string, payload []byte) error

// Client publishes enriched events and listener status to the broker and
// receives listener commands. It announces itself on the retained
// <prefix>/status topic, with a will for unclean disconnects.
type Client struct {
	paho   pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	mu           sync.Mutex
	logger       Logger
	commands     MessageHandler
	onConnect    func()
	onDisconnect func(error)
}

// Connect dials the broker and waits for the first session. Later drops are
// retried by paho; each new session resubscribes the command topic and
// republishes online presence.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		topics: NewTopics(cfg.TopicPrefix),
		logger: noopLogger{},
	}

	opts := clientOptions(cfg, c.topics)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log().Warn("MQTT reconnecting", "client_id", cfg.Broker.ClientID)
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := wait(c.paho.Connect(), connectTimeout, ErrConnect); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) sessionUp() {
	c.mu.Lock()
	commands, cb := c.commands, c.onConnect
	c.mu.Unlock()

	if commands != nil {
		topic := c.topics.ListenerCommand()
		// Waiting on a token inside the connect handler stalls paho.
		go func() {
			token := c.paho.Subscribe(topic, c.QoS(), c.dispatch(commands))
			if err := wait(token, opTimeout, ErrSubscribe); err != nil {
				c.log().Error("restoring command subscription", "topic", topic, "error", err)
			}
		}()
	}
	c.paho.Publish(c.topics.Status(), c.QoS(), true, presence(presenceOnline, c.cfg.Broker.ClientID, ""))

	if cb != nil {
		cb()
	}
}

func (c *Client) sessionDown(err error) {
	c.mu.Lock()
	cb := c.onDisconnect
	c.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// Close publishes offline presence and disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.paho.Publish(c.topics.Status(), c.QoS(), true,
			presence(presenceOffline, c.cfg.Broker.ClientID, "shutdown"))
		token.WaitTimeout(opTimeout)
	}
	c.paho.Disconnect(disconnectQuiesceMS)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a broker session is open.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.paho.IsConnectionOpen()
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// QoS returns the configured QoS level.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}

// SetOnConnect registers a callback run after every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback run when the session drops.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger sets the logger. nil discards.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}

// wait blocks for token up to timeout and wraps any failure in kind.
func wait(token pahomqtt.Token, timeout time.Duration, kind error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: no broker response after %v", kind, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return nil
}
