package listener

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// Transition describes one listener lifecycle change.
type Transition struct {
	Port     int
	Protocol Protocol
	From     State
	To       State
	Reason   string
	Err      error
	At       time.Time
}

// Transition reasons reported to observers.
const (
	ReasonAdded      = "added"
	ReasonStarted    = "started"
	ReasonStopped    = "stop requested"
	ReasonBindFailed = "bind failed"
	ReasonFault      = "fault"
)

// Observer receives listener lifecycle transitions. Calls are made
// synchronously and must not call back into the Registry.
type Observer interface {
	ListenerTransition(t Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(t Transition)

// ListenerTransition calls f(t).
func (f ObserverFunc) ListenerTransition(t Transition) {
	f(t)
}

// Observers fans a transition out to each non-nil observer in order.
type Observers []Observer

// ListenerTransition implements Observer.
func (obs Observers) ListenerTransition(t Transition) {
	for _, o := range obs {
		if o != nil {
			o.ListenerTransition(t)
		}
	}
}

// managed is a listener with the control methods the Registry needs.
type managed interface {
	Listener
	SetLogger(Logger)
	SetMetrics(*Metrics)
	Info() Info
	Done() <-chan struct{}
	setFaultHandler(func(Listener, error))
}

// Registry holds at most one listener per port.
//
// Misuse (duplicate ports, unknown ports) is logged and otherwise ignored so
// control callers never have to handle errors. A listener that terminates on
// its own is removed.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.Mutex // protects listeners and handler
	listeners map[int]managed
	handler   Handler

	logger   Logger
	metrics  *Metrics
	observer Observer
}

// NewRegistry creates an empty registry. Listeners added without their own
// handler receive messages through a handler that only logs them, until
// SetHandler installs another.
func NewRegistry() *Registry {
	r := &Registry{
		listeners: make(map[int]managed),
		logger:    noopLogger{},
	}
	r.handler = logHandler{registry: r}
	return r
}

// SetLogger sets the logger for the registry and its listeners.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetMetrics sets the metrics sink passed to listeners.
func (r *Registry) SetMetrics(m *Metrics) {
	r.metrics = m
}

// SetObserver installs an observer for lifecycle transitions.
func (r *Registry) SetObserver(o Observer) {
	r.observer = o
}

// SetHandler sets the default handler for listeners added afterwards
// without their own.
func (r *Registry) SetHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == nil {
		h = logHandler{registry: r}
	}
	r.handler = h
}

// AddListener creates a listener in the NEW state on port.
func (r *Registry) AddListener(port int, protocol Protocol, opts Options) {
	r.mu.Lock()
	if _, exists := r.listeners[port]; exists {
		r.mu.Unlock()
		r.logger.Warn("listener already exists", "port", port, "protocol", protocol)
		return
	}
	if opts.Handler == nil {
		opts.Handler = r.handler
	}

	l, err := New(port, protocol, opts)
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("cannot add listener", "port", port, "protocol", protocol, "error", err)
		return
	}
	m := l.(managed)
	m.SetLogger(r.logger)
	m.SetMetrics(r.metrics)
	r.watch(m)
	r.listeners[port] = m
	r.mu.Unlock()

	r.logger.Info("listener added", "port", port, "protocol", protocol)
	r.notify(Transition{Port: port, Protocol: protocol, From: "", To: StateNew, Reason: ReasonAdded})
}

// watch installs the fault callback that removes a failed listener.
func (r *Registry) watch(m managed) {
	onFault := func(l Listener, err error) {
		r.mu.Lock()
		current, ok := r.listeners[l.Port()]
		removed := ok && current == l
		if removed {
			delete(r.listeners, l.Port())
		}
		r.mu.Unlock()

		if removed {
			r.logger.Warn("listener removed after fault", "port", l.Port(), "protocol", l.Protocol(), "error", err)
			r.notify(Transition{
				Port: l.Port(), Protocol: l.Protocol(),
				From: StateRunning, To: StateStopped,
				Reason: ReasonFault, Err: err,
			})
		}
	}

	m.setFaultHandler(onFault)
}

// StartListener starts the listener on port. A listener whose socket cannot
// be bound is removed.
func (r *Registry) StartListener(port int) {
	r.mu.Lock()
	l, ok := r.listeners[port]
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("cannot start listener: port not registered", "port", port)
		return
	}

	if err := l.Start(); err != nil {
		if errors.Is(err, ErrNotStartable) {
			r.logger.Warn("cannot start listener", "port", port, "state", l.State(), "error", err)
			return
		}

		r.remove(port, l)
		r.logger.Error("listener failed to start", "port", port, "protocol", l.Protocol(), "error", err)
		r.notify(Transition{
			Port: port, Protocol: l.Protocol(),
			From: StateNew, To: StateStopped,
			Reason: ReasonBindFailed, Err: err,
		})
		return
	}

	r.notify(Transition{Port: port, Protocol: l.Protocol(), From: StateNew, To: StateRunning, Reason: ReasonStarted})
}

// StopListener stops the listener on port and removes it once its socket is
// closed. Stopping a NEW listener discards it.
func (r *Registry) StopListener(port int) {
	r.mu.Lock()
	l, ok := r.listeners[port]
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("cannot stop listener: port not registered", "port", port)
		return
	}

	from := l.State()
	l.Stop()

	// A fault or a concurrent stop may already have removed it.
	if !r.remove(port, l) {
		return
	}

	r.logger.Info("listener removed", "port", port, "protocol", l.Protocol())
	if from != StateStopped {
		r.notify(Transition{Port: port, Protocol: l.Protocol(), From: from, To: StateStopped, Reason: ReasonStopped})
	}
}

// StopAll stops and removes every listener.
func (r *Registry) StopAll() {
	for _, port := range r.ListPorts() {
		r.StopListener(port)
	}
}

// PortType returns the protocol of the listener on port.
func (r *Registry) PortType(port int) (Protocol, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listeners[port]
	if !ok {
		return "", false
	}
	return l.Protocol(), true
}

// ListPorts returns the registered ports in ascending order.
func (r *Registry) ListPorts() []int {
	r.mu.Lock()
	ports := make([]int, 0, len(r.listeners))
	for port := range r.listeners {
		ports = append(ports, port)
	}
	r.mu.Unlock()

	slices.Sort(ports)
	return ports
}

// State returns the state of the listener on port, or StateNotFound.
func (r *Registry) State(port int) State {
	r.mu.Lock()
	l, ok := r.listeners[port]
	r.mu.Unlock()
	if !ok {
		return StateNotFound
	}
	return l.State()
}

// Info returns a status snapshot of the listener on port.
func (r *Registry) Info(port int) (Info, bool) {
	r.mu.Lock()
	l, ok := r.listeners[port]
	r.mu.Unlock()
	if !ok {
		return Info{}, false
	}
	return l.Info(), true
}

// Snapshot returns status for every listener, ordered by port.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	infos := make([]Info, 0, len(r.listeners))
	for _, l := range r.listeners {
		infos = append(infos, l.Info())
	}
	r.mu.Unlock()

	slices.SortFunc(infos, func(a, b Info) int { return a.Port - b.Port })
	return infos
}

// Wait blocks until the listener on port exits or ctx is done. It returns
// immediately for unknown or NEW listeners.
func (r *Registry) Wait(ctx context.Context, port int) {
	r.mu.Lock()
	l, ok := r.listeners[port]
	r.mu.Unlock()
	if !ok || l.State() == StateNew {
		return
	}
	select {
	case <-l.Done():
	case <-ctx.Done():
	}
}

// remove deletes l from port if it is still the registered listener.
func (r *Registry) remove(port int, l managed) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.listeners[port]; ok && current == l {
		delete(r.listeners, port)
		return true
	}
	return false
}

func (r *Registry) notify(t Transition) {
	if r.observer == nil {
		return
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	r.observer.ListenerTransition(t)
}

// logHandler is the registry's fallback handler.
type logHandler struct {
	registry *Registry
}

func (h logHandler) HandleMessage(_ context.Context, msg Message) error {
	h.registry.logger.Info("message received",
		"port", msg.Port,
		"protocol", msg.Protocol,
		"remote", msg.Remote,
		"bytes", len(msg.Text),
	)
	return nil
}
