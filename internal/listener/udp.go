package listener

import (
	"fmt"
	"net"
	"time"
)

// UDPListener receives one message per datagram.
type UDPListener struct {
	base
	conn net.PacketConn
}

// NewUDPListener creates a UDP listener in the NEW state. The socket is not
// bound until Start.
func NewUDPListener(port int, opts Options) *UDPListener {
	l := &UDPListener{base: newBase(port, ProtocolUDP, opts)}
	l.self = l
	return l
}

// Start binds the datagram socket and launches the receive goroutine.
func (l *UDPListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateNew {
		return fmt.Errorf("%w: port %d is %s", ErrNotStartable, l.port, l.state)
	}

	conn, err := net.ListenPacket("udp", l.address())
	if err != nil {
		l.state = StateStopped
		l.cancel()
		return fmt.Errorf("binding udp port %d: %w", l.port, err)
	}
	l.conn = conn
	l.markRunning(conn)

	go l.receiveLoop()
	return nil
}

// LocalAddr returns the bound address, or nil before Start.
func (l *UDPListener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// receiveLoop reads datagrams until stopped or the socket fails.
//
// Handler errors are logged and the loop continues. The buffer is zeroed
// after each message so a short datagram never carries bytes from a longer
// predecessor.
func (l *UDPListener) receiveLoop() {
	var exitErr error
	defer func() { l.finish(exitErr) }()

	buf := make([]byte, l.opts.PacketSize)

	for l.running.Load() {
		n, remote, err := l.conn.ReadFrom(buf)
		if err != nil {
			if !l.running.Load() {
				return // socket closed by Stop
			}
			exitErr = fmt.Errorf("reading udp socket: %w", err)
			return
		}

		msg := Message{
			Port:       l.port,
			Protocol:   ProtocolUDP,
			Text:       string(buf[:n]),
			ReceivedAt: time.Now(),
		}
		if remote != nil {
			msg.Remote = remote.String()
		}

		if err := l.dispatch(msg); err != nil {
			l.logger.Warn("message handling failed",
				"port", l.port,
				"protocol", ProtocolUDP,
				"remote", msg.Remote,
				"error", err,
			)
		}

		clear(buf[:n])
	}
}
