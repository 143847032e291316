// Package control applies listener lifecycle commands received over MQTT or
// the HTTP API to a listener registry.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/cotbridge/internal/listener"
)

// Actions accepted in a Command.
const (
	ActionAdd   = "add"
	ActionStart = "start"
	ActionStop  = "stop"
)

// Errors returned by Command validation.
var (
	ErrInvalidCommand = errors.New("control: invalid command")
	ErrUnknownAction  = errors.New("control: unknown action")
)

// Command is a single listener lifecycle request.
type Command struct {
	Action      string `json:"action"`
	Port        int    `json:"port"`
	Protocol    string `json:"protocol,omitempty"`
	BindAddress string `json:"bind_address,omitempty"`
	PacketSize  int    `json:"packet_size,omitempty"`
	Debug       bool   `json:"debug,omitempty"`
}

// Result reports the outcome of an applied command.
type Result struct {
	Action string         `json:"action"`
	Port   int            `json:"port"`
	State  listener.State `json:"state"`
}

// Registry is the subset of the listener registry a Command drives.
type Registry interface {
	AddListener(port int, protocol listener.Protocol, opts listener.Options)
	StartListener(port int)
	StopListener(port int)
	State(port int) listener.State
}

// Decode parses a JSON command and validates it.
func Decode(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Validate checks the action, port and protocol. A protocol is required to
// add a listener and optional for start, where it adds the listener first
// when the port is not yet registered.
func (c *Command) Validate() error {
	c.Action = strings.ToLower(strings.TrimSpace(c.Action))
	switch c.Action {
	case ActionAdd, ActionStart, ActionStop:
	case "":
		return fmt.Errorf("%w: action is required", ErrInvalidCommand)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidCommand, c.Port)
	}
	if c.PacketSize < 0 {
		return fmt.Errorf("%w: packet_size must not be negative", ErrInvalidCommand)
	}

	if c.Protocol != "" {
		p, err := listener.ParseProtocol(c.Protocol)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		c.Protocol = string(p)
	} else if c.Action == ActionAdd {
		return fmt.Errorf("%w: protocol is required for add", ErrInvalidCommand)
	}
	return nil
}

// Options returns the listener options carried by the command.
func (c Command) Options() listener.Options {
	return listener.Options{
		BindAddress: c.BindAddress,
		PacketSize:  c.PacketSize,
		Debug:       c.Debug,
	}
}

// Apply executes a validated command against reg and reports the resulting
// state of the port.
func (c Command) Apply(reg Registry) Result {
	switch c.Action {
	case ActionAdd:
		reg.AddListener(c.Port, listener.Protocol(c.Protocol), c.Options())
	case ActionStart:
		if c.Protocol != "" && reg.State(c.Port) == listener.StateNotFound {
			reg.AddListener(c.Port, listener.Protocol(c.Protocol), c.Options())
		}
		reg.StartListener(c.Port)
	case ActionStop:
		reg.StopListener(c.Port)
	}
	return Result{Action: c.Action, Port: c.Port, State: reg.State(c.Port)}
}
