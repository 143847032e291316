package natsbus

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
)

const testServerAddr = "127.0.0.1:4222"

func testConfig() config.NATSConfig {
	return config.NATSConfig{
		Enabled:       true,
		URL:           "nats://" + testServerAddr,
		Name:          "cotbridge-test",
		SubjectPrefix: "cot.test",
		MaxReconnects: 2,
		ReconnectWait: 1,
	}
}

// connectOrSkip connects to a local NATS server or skips the test.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testServerAddr, 500*time.Millisecond)
	if err != nil {
		t.Skipf("no NATS server at %s: %v", testServerAddr, err)
	}
	conn.Close()

	client, err := Connect(testConfig(), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSubject(t *testing.T) {
	tests := []struct {
		prefix   string
		protocol string
		port     int
		want     string
	}{
		{"cot.events", "udp", 9999, "cot.events.udp.9999"},
		{"", "tcp", 9998, "cot.events.tcp.9998"},
		{"site.a.", "UDP", 6969, "site.a.udp.6969"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Subject(tt.prefix, tt.protocol, tt.port); got != tt.want {
				t.Errorf("Subject(%q, %q, %d) = %q, want %q", tt.prefix, tt.protocol, tt.port, got, tt.want)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Token = "s3cret"

	o := nats.GetDefaultOptions()
	for _, opt := range options(cfg, noopLogger{}) {
		if err := opt(&o); err != nil {
			t.Fatalf("option error = %v", err)
		}
	}

	if o.Name != "cotbridge-test" {
		t.Errorf("Name = %q", o.Name)
	}
	if o.Token != "s3cret" {
		t.Errorf("Token = %q", o.Token)
	}
	if o.MaxReconnect != 2 {
		t.Errorf("MaxReconnect = %d", o.MaxReconnect)
	}
	if o.ReconnectWait != time.Second {
		t.Errorf("ReconnectWait = %v", o.ReconnectWait)
	}
	if o.Timeout != dialTimeout {
		t.Errorf("Timeout = %v", o.Timeout)
	}
	if o.DisconnectedErrCB == nil || o.ReconnectedCB == nil || o.ClosedCB == nil {
		t.Error("connection state handlers not installed")
	}
}

func TestOptions_DefaultReconnectWait(t *testing.T) {
	cfg := testConfig()
	cfg.ReconnectWait = 0

	o := nats.GetDefaultOptions()
	for _, opt := range options(cfg, noopLogger{}) {
		if err := opt(&o); err != nil {
			t.Fatalf("option error = %v", err)
		}
	}
	if o.ReconnectWait != reconnectWait {
		t.Errorf("ReconnectWait = %v, want %v", o.ReconnectWait, reconnectWait)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg, nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Refused(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "nats://127.0.0.1:1"

	if _, err := Connect(cfg, nil); !errors.Is(err, ErrConnect) {
		t.Errorf("Connect() error = %v, want ErrConnect", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{}
	ctx := context.Background()

	if err := c.Publish(ctx, "", []byte("x")); !errors.Is(err, ErrEmptySubject) {
		t.Errorf("Publish(empty) error = %v", err)
	}
	if err := c.Publish(ctx, "cot.events.udp.9999", []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish(disconnected) error = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := c.Publish(cancelled, "a", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish(cancelled) error = %v", err)
	}
	if err := c.HealthCheck(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestPublishRoundtrip(t *testing.T) {
	client := connectOrSkip(t)

	sub, err := client.conn.SubscribeSync("cot.test.>")
	if err != nil {
		t.Fatalf("SubscribeSync() error = %v", err)
	}

	subject := client.Subject("udp", 9999)
	if err := client.Publish(context.Background(), subject, []byte(`{"event":{}}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	if msg.Subject != "cot.test.udp.9999" || string(msg.Data) != `{"event":{}}` {
		t.Errorf("received %s %s", msg.Subject, msg.Data)
	}

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
