package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
)

// ErrHandlerPanic wraps a panic recovered from a Handler.
var ErrHandlerPanic = errors.New("listener: handler panicked")

// base holds the lifecycle shared by the UDP and TCP listeners.
type base struct {
	port     int
	protocol Protocol
	opts     Options
	logger   Logger
	metrics  *Metrics

	// self is the concrete listener, passed to onFault.
	self Listener

	// onFault is called from the receive goroutine when it exits without a
	// stop request.
	onFault func(l Listener, err error)

	// onClose runs after the socket is closed, once.
	onClose func()

	mu    sync.Mutex // protects state
	state State

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	closeOnce sync.Once
	socket    io.Closer
}

func newBase(port int, protocol Protocol, opts Options) base {
	ctx, cancel := context.WithCancel(context.Background())
	return base{
		port:     port,
		protocol: protocol,
		opts:     opts.withDefaults(),
		logger:   noopLogger{},
		state:    StateNew,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// SetLogger sets the logger for the listener. It must be called before Start.
func (b *base) SetLogger(logger Logger) {
	b.logger = logger
}

// SetMetrics sets the metrics sink for the listener. It must be called
// before Start.
func (b *base) SetMetrics(m *Metrics) {
	b.metrics = m
}

// SetHandler replaces the handler. It must be called before Start.
func (b *base) SetHandler(h Handler) {
	b.opts.Handler = h
}

// Port returns the configured local port.
func (b *base) Port() int {
	return b.port
}

// Protocol returns the listener transport.
func (b *base) Protocol() Protocol {
	return b.protocol
}

// State returns the current lifecycle state.
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Info returns a status snapshot.
func (b *base) Info() Info {
	info := Info{
		Port:     b.port,
		Protocol: b.protocol,
		State:    b.State(),
		Address:  b.address(),
		Debug:    b.opts.Debug,
	}
	if b.protocol == ProtocolUDP {
		info.PacketSize = b.opts.PacketSize
	}
	return info
}

func (b *base) setFaultHandler(fn func(Listener, error)) {
	b.onFault = fn
}

// Done is closed when the receive goroutine has exited.
func (b *base) Done() <-chan struct{} {
	return b.done
}

func (b *base) address() string {
	return net.JoinHostPort(b.opts.BindAddress, strconv.Itoa(b.port))
}

// markRunning records a successful bind. Caller holds b.mu.
func (b *base) markRunning(socket io.Closer) {
	b.socket = socket
	b.state = StateRunning
	b.running.Store(true)
	b.metrics.started(b.protocol)

	b.logger.Info("listener started",
		"port", b.port,
		"protocol", b.protocol,
		"address", b.address(),
		"packet_size", b.opts.PacketSize,
		"debug", b.opts.Debug,
	)
}

// Stop requests termination and waits for the receive goroutine.
//
// Stopping a NEW listener moves it straight to STOPPED. Stopping a STOPPED
// listener does nothing.
func (b *base) Stop() {
	b.mu.Lock()
	switch b.state {
	case StateNew:
		b.state = StateStopped
		b.mu.Unlock()
		b.cancel()
		return
	case StateStopped:
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.running.Store(false)
	b.cancel()
	b.closeSocket()
	<-b.done
}

func (b *base) closeSocket() {
	b.closeOnce.Do(func() {
		if b.socket != nil {
			if err := b.socket.Close(); err != nil {
				b.logger.Debug("closing socket", "port", b.port, "protocol", b.protocol, "error", err)
			}
		}
		if b.onClose != nil {
			b.onClose()
		}
	})
}

// finish runs when the receive goroutine exits. The exit is a fault when the
// running flag was still set.
func (b *base) finish(exitErr error) {
	requested := !b.running.Swap(false)
	b.closeSocket()
	b.cancel()

	b.mu.Lock()
	b.state = StateStopped
	b.mu.Unlock()
	b.metrics.stopped(b.protocol)

	if requested {
		b.logger.Info("listener stopped", "port", b.port, "protocol", b.protocol)
	} else {
		b.metrics.fault(b.port, b.protocol)
		b.logger.Error("listener terminated", "port", b.port, "protocol", b.protocol, "error", exitErr)
		if b.onFault != nil {
			b.onFault(b.self, exitErr)
		}
	}

	close(b.done)
}

// dispatch hands one message to the debug dump and the handler. Panics in
// either are converted into errors.
func (b *base) dispatch(msg Message) (err error) {
	b.metrics.messageReceived(b.port, b.protocol, len(msg.Text))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		if err != nil {
			b.metrics.handlerError(b.port, b.protocol)
		}
	}()

	// Debug mode output is logged at info so it survives the default level.
	if b.opts.Debug {
		b.logger.Info("begin message",
			"port", b.port,
			"protocol", b.protocol,
			"remote", msg.Remote,
			"bytes", len(msg.Text),
			"text", msg.Text,
		)
		if d, ok := b.opts.Handler.(Dumper); ok {
			d.DumpMessage(msg)
		}
		b.logger.Info("end message", "port", b.port, "protocol", b.protocol)
	}

	if b.opts.Handler == nil {
		return nil
	}
	return b.opts.Handler.HandleMessage(b.ctx, msg)
}
