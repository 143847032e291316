package mqtt

import (
	"strconv"
	"strings"
)

// DefaultTopicPrefix is used when topic_prefix is empty.
const DefaultTopicPrefix = "cotbridge"

// Topics builds the bridge's topic names under one prefix. The zero value
// uses DefaultTopicPrefix.
type Topics struct {
	prefix string
}

// NewTopics trims surrounding slashes from prefix.
func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.Trim(prefix, "/")}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

func (t Topics) join(parts ...string) string {
	return t.Prefix() + "/" + strings.Join(parts, "/")
}

// Status is the retained bridge presence topic.
func (t Topics) Status() string { return t.join("status") }

// Event is the topic for events with the given symbol code; an empty code
// maps to "unknown".
func (t Topics) Event(symbolCode string) string {
	if symbolCode == "" {
		symbolCode = "unknown"
	}
	return t.join("event", symbolCode)
}

// ListenerStatus is the retained lifecycle topic for one port.
func (t Topics) ListenerStatus(port int) string {
	return t.join("listener", strconv.Itoa(port), "status")
}

// ListenerCommand is the topic the control plane reads commands from.
func (t Topics) ListenerCommand() string { return t.join("command", "listener") }
