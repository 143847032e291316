package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementMessages    = "cot_messages"
	MeasurementTransitions = "listener_transitions"
)

// MessagePoint describes one message received by a listener.
type MessagePoint struct {
	Port        int
	Protocol    string
	SymbolCode  string
	Affiliation string
	Bytes       int
	Valid       bool
	ReceivedAt  time.Time
}

// TransitionPoint describes one listener lifecycle change.
type TransitionPoint struct {
	Port     int
	Protocol string
	From     string
	To       string
	Reason   string
	At       time.Time
}

// WriteMessagePoint records a received message. The payload is never
// stored.
func (c *Client) WriteMessagePoint(m MessagePoint) {
	if c.open.Load() {
		c.writes.WritePoint(messagePoint(m))
	}
}

// WriteTransitionPoint records a listener lifecycle transition.
func (c *Client) WriteTransitionPoint(tp TransitionPoint) {
	if c.open.Load() {
		c.writes.WritePoint(transitionPoint(tp))
	}
}

func messagePoint(m MessagePoint) *write.Point {
	tags := map[string]string{
		"port":     strconv.Itoa(m.Port),
		"protocol": m.Protocol,
	}
	if m.SymbolCode != "" {
		tags["symbol_code"] = m.SymbolCode
	}
	if m.Affiliation != "" {
		tags["affiliation"] = m.Affiliation
	}

	valid := int64(0)
	if m.Valid {
		valid = 1
	}

	return write.NewPoint(
		MeasurementMessages,
		tags,
		map[string]any{
			"bytes": int64(m.Bytes),
			"count": int64(1),
			"valid": valid,
		},
		timestampOrNow(m.ReceivedAt),
	)
}

func transitionPoint(tp TransitionPoint) *write.Point {
	return write.NewPoint(
		MeasurementTransitions,
		map[string]string{
			"port":     strconv.Itoa(tp.Port),
			"protocol": tp.Protocol,
			"to":       tp.To,
		},
		map[string]any{
			"from":   tp.From,
			"reason": tp.Reason,
		},
		timestampOrNow(tp.At),
	)
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
