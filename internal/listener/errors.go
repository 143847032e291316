package listener

import "errors"

// Domain errors for listeners.
var (
	// ErrInvalidPort is returned for ports outside 1-65535.
	ErrInvalidPort = errors.New("listener: invalid port")

	// ErrUnknownProtocol is returned for protocols other than udp and tcp.
	ErrUnknownProtocol = errors.New("listener: unknown protocol")

	// ErrNotStartable is returned when Start is called on a listener that
	// has already been started or stopped.
	ErrNotStartable = errors.New("listener: not in NEW state")
)
