// Package listener receives Cursor-on-Target messages over UDP and TCP.
//
// Each Listener owns one socket bound to a local port and runs a single
// receive goroutine. Every complete message is handed synchronously to a
// Handler on that goroutine:
//
//   - UDP: one datagram is one message
//   - TCP: one accepted connection, read to EOF, is one message
//
// Listeners move through NEW -> RUNNING -> STOPPED and never go back. Stop is
// cooperative: a flag is cleared and the socket is closed, which unblocks the
// pending read or accept.
//
// The Registry keys listeners by port and is the control surface used by the
// rest of the process.
package listener

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Protocol identifies a listener transport.
type Protocol string

// Supported protocols.
const (
	ProtocolUDP Protocol = "udp"
	ProtocolTCP Protocol = "tcp"
)

// ParseProtocol converts a case-insensitive name into a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case ProtocolUDP:
		return ProtocolUDP, nil
	case ProtocolTCP:
		return ProtocolTCP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

// State is a listener lifecycle state.
type State string

// Lifecycle states. StateNotFound is only reported by the Registry for ports
// it does not hold.
const (
	StateNew      State = "NEW"
	StateRunning  State = "RUNNING"
	StateStopped  State = "STOPPED"
	StateNotFound State = "NOT_FOUND"
)

// Defaults applied when options leave them unset.
const (
	DefaultUDPPort    = 9999
	DefaultTCPPort    = 9998
	DefaultPacketSize = 1024
)

// Message is one complete unit of received text.
type Message struct {
	Port       int
	Protocol   Protocol
	Remote     string
	Text       string
	ReceivedAt time.Time
}

// Handler processes received messages.
//
// HandleMessage runs on the listener's receive goroutine, so the next message
// is not read until it returns. The context is cancelled when the listener is
// asked to stop. A returned error is logged by UDP listeners and terminates
// TCP listeners.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg Message) error

// HandleMessage calls f(ctx, msg).
func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Dumper is implemented by handlers that can print a field-by-field
// rendering of a message. Listeners in debug mode call it before
// HandleMessage.
type Dumper interface {
	DumpMessage(msg Message)
}

// Options configures a listener.
type Options struct {
	// BindAddress is the local address to bind. Empty binds all interfaces.
	BindAddress string

	// PacketSize is the UDP datagram buffer size in bytes. Larger datagrams
	// are truncated. Ignored by TCP listeners.
	PacketSize int

	// Debug enables verbose per-message logging and the handler's dump.
	Debug bool

	// Handler receives every message. Nil selects the registry default.
	Handler Handler
}

func (o Options) withDefaults() Options {
	if o.PacketSize <= 0 {
		o.PacketSize = DefaultPacketSize
	}
	return o
}

// Listener is a running or runnable socket receiver.
type Listener interface {
	// Start binds the socket and launches the receive goroutine.
	Start() error

	// Stop requests termination and waits for the receive goroutine to exit.
	// It must not be called from the listener's own Handler.
	Stop()

	Port() int
	Protocol() Protocol
	State() State
}

// Info describes a listener for status reporting.
type Info struct {
	Port       int      `json:"port"`
	Protocol   Protocol `json:"protocol"`
	State      State    `json:"state"`
	Address    string   `json:"address,omitempty"`
	PacketSize int      `json:"packet_size,omitempty"`
	Debug      bool     `json:"debug"`
}

// New creates a listener for the given protocol.
func New(port int, protocol Protocol, opts Options) (Listener, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	switch protocol {
	case ProtocolUDP:
		return NewUDPListener(port, opts), nil
	case ProtocolTCP:
		return NewTCPListener(port, opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, protocol)
}

// Logger defines the logging interface used by listeners and the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
