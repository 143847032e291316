package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
	"github.com/nerrad567/cotbridge/internal/infrastructure/logging"
	"github.com/nerrad567/cotbridge/internal/listener"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("COTBRIDGE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidListener verifies run rejects a listener with an unknown protocol.
func TestRun_InvalidListener(t *testing.T) {
	configPath := writeConfig(t, `
service:
  id: test
listeners:
  - port: 9999
    protocol: sctp
api:
  enabled: false
logging:
  level: error
  format: text
`)
	t.Setenv("COTBRIDGE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with unknown listener protocol")
	}
}

// TestRun_DatabaseOnly starts with only the audit database enabled and
// verifies run returns cleanly once the context ends.
func TestRun_DatabaseOnly(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, fmt.Sprintf(`
service:
  id: test
listeners: []
database:
  enabled: true
  path: %q
  wal_mode: true
  busy_timeout: 5
api:
  enabled: false
logging:
  level: error
  format: text
`, filepath.Join(tmpDir, "audit.db")))
	t.Setenv("COTBRIDGE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "audit.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("COTBRIDGE_CONFIG", "")
	if got := configPath(); got != defaultConfigPath {
		t.Errorf("configPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("COTBRIDGE_CONFIG", "/custom/path/config.yaml")
	if got := configPath(); got != "/custom/path/config.yaml" {
		t.Errorf("configPath() = %q, want the COTBRIDGE_CONFIG value", got)
	}
}

func TestBridgeShutdownRunsNewestFirst(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "service:\n  id: test\nlogging:\n  level: error\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b := newBridge(cfg, logging.NewWithWriter(cfg.Logging, "test", io.Discard))

	var order []string
	for _, name := range []string{"database", "mqtt", "listeners"} {
		name := name
		b.onShutdown(name, func() error {
			order = append(order, name)
			if name == "mqtt" {
				return errors.New("already closed")
			}
			return nil
		})
	}
	b.shutdown()

	if want := []string{"listeners", "mqtt", "database"}; !slices.Equal(order, want) {
		t.Errorf("shutdown order = %v, want %v", order, want)
	}
	b.shutdown()
	if len(order) != 3 {
		t.Errorf("second shutdown reran closers: %v", order)
	}
}

func TestOpenSinksReportsFailingSink(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
service:
  id: test
listeners: []
nats:
  enabled: true
  url: nats://127.0.0.1:1
  max_reconnects: 0
api:
  enabled: false
logging:
  level: error
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b := newBridge(cfg, logging.NewWithWriter(cfg.Logging, "test", io.Discard))
	t.Cleanup(b.shutdown)

	err = b.openSinks(context.Background())
	if err == nil || !strings.Contains(err.Error(), "opening nats") {
		t.Fatalf("openSinks() error = %v, want it to name the nats sink", err)
	}
}

func TestRegisterListeners(t *testing.T) {
	udpPort := freeUDPPort(t)
	off := false

	registry := listener.NewRegistry()
	t.Cleanup(registry.StopAll)

	registerListeners(registry, []config.ListenerConfig{
		{Port: udpPort, Protocol: "UDP", Bind: "127.0.0.1", PacketSize: 2048},
		{Port: 65001, Protocol: "tcp", Autostart: &off},
		{Port: 65002, Protocol: "bogus"},
	})

	if got := registry.State(udpPort); got != listener.StateRunning {
		t.Errorf("State(%d) = %s, want %s", udpPort, got, listener.StateRunning)
	}
	if got := registry.State(65001); got != listener.StateNew {
		t.Errorf("State(65001) = %s, want %s", got, listener.StateNew)
	}
	if got := registry.State(65002); got != listener.StateNotFound {
		t.Errorf("State(65002) = %s, want %s", got, listener.StateNotFound)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func freeUDPPort(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	port := pc.LocalAddr().(*net.UDPAddr).Port
	pc.Close()
	return port
}
