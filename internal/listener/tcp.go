package listener

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// TCPListener receives one message per connection.
//
// Connections are served one at a time on the accept goroutine. Each
// connection is read to EOF; its lines are joined without terminators into a
// single message. A read error or a handler error ends the listener.
type TCPListener struct {
	base
	ln net.Listener

	activeMu sync.Mutex
	active   net.Conn
}

// NewTCPListener creates a TCP listener in the NEW state. The socket is not
// bound until Start.
func NewTCPListener(port int, opts Options) *TCPListener {
	l := &TCPListener{base: newBase(port, ProtocolTCP, opts)}
	l.self = l
	l.onClose = l.closeActive
	return l
}

// Start binds the server socket and launches the accept goroutine.
func (l *TCPListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateNew {
		return fmt.Errorf("%w: port %d is %s", ErrNotStartable, l.port, l.state)
	}

	ln, err := net.Listen("tcp", l.address())
	if err != nil {
		l.state = StateStopped
		l.cancel()
		return fmt.Errorf("binding tcp port %d: %w", l.port, err)
	}
	l.ln = ln
	l.markRunning(ln)

	go l.acceptLoop()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (l *TCPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *TCPListener) acceptLoop() {
	var exitErr error
	defer func() { l.finish(exitErr) }()

	for l.running.Load() {
		conn, err := l.ln.Accept()
		if err != nil {
			if !l.running.Load() {
				return // socket closed by Stop
			}
			exitErr = fmt.Errorf("accepting tcp connection: %w", err)
			return
		}

		remote := conn.RemoteAddr().String()
		text, err := l.readMessage(conn)
		if err != nil {
			if !l.running.Load() {
				return
			}
			exitErr = fmt.Errorf("reading tcp connection from %s: %w", remote, err)
			return
		}

		msg := Message{
			Port:       l.port,
			Protocol:   ProtocolTCP,
			Remote:     remote,
			Text:       text,
			ReceivedAt: time.Now(),
		}
		if err := l.dispatch(msg); err != nil {
			exitErr = fmt.Errorf("handling message from %s: %w", remote, err)
			return
		}
	}
}

// readMessage reads conn to EOF and closes it.
func (l *TCPListener) readMessage(conn net.Conn) (string, error) {
	defer conn.Close()

	l.setActive(conn)
	defer l.setActive(nil)

	// Stop may have run between Accept and setActive.
	if !l.running.Load() {
		return "", net.ErrClosed
	}

	r := bufio.NewReader(conn)
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		b.WriteString(stripLineTerminators(line))
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}

func (l *TCPListener) setActive(conn net.Conn) {
	l.activeMu.Lock()
	l.active = conn
	l.activeMu.Unlock()
}

// closeActive unblocks a read in progress when the listener is stopped.
func (l *TCPListener) closeActive() {
	l.activeMu.Lock()
	defer l.activeMu.Unlock()
	if l.active != nil {
		l.active.Close()
	}
}

// stripLineTerminators removes CR and LF, both of which end a line.
func stripLineTerminators(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
