package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nerrad567/cotbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/cotbridge/internal/listener"
)

// ChannelEvents is the websocket channel enriched events are broadcast on.
const ChannelEvents = "cot.event"

// errNoSink is returned by publishers constructed without a backing client.
var errNoSink = errors.New("handler: sink not configured")

// EventPublisher is the subset of the MQTT client used by MQTTPublisher.
type EventPublisher interface {
	PublishEvent(symbolCode string, payload []byte) error
}

// MQTTPublisher publishes enriched JSON to <prefix>/event/<symbol code>.
type MQTTPublisher struct {
	client EventPublisher
}

// NewMQTTPublisher wraps an MQTT client.
func NewMQTTPublisher(client EventPublisher) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// Name implements Publisher.
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(_ context.Context, e Enriched) error {
	if p.client == nil {
		return errNoSink
	}
	return p.client.PublishEvent(e.SymbolCode, e.JSON)
}

// SubjectPublisher is the subset of the NATS client used by NATSPublisher.
type SubjectPublisher interface {
	Subject(protocol string, port int) string
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSPublisher publishes enriched JSON to <prefix>.<protocol>.<port>.
type NATSPublisher struct {
	client SubjectPublisher
}

// NewNATSPublisher wraps a NATS client.
func NewNATSPublisher(client SubjectPublisher) *NATSPublisher {
	return &NATSPublisher{client: client}
}

// Name implements Publisher.
func (p *NATSPublisher) Name() string { return "nats" }

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, e Enriched) error {
	if p.client == nil {
		return errNoSink
	}
	return p.client.Publish(ctx, p.client.Subject(string(e.Protocol), e.Port), e.JSON)
}

// Broadcaster is the subset of the websocket hub used by HubPublisher.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// HubEvent is the websocket payload for one enriched event.
type HubEvent struct {
	Port        int             `json:"port"`
	Protocol    string          `json:"protocol"`
	UID         string          `json:"uid"`
	Type        string          `json:"type"`
	SymbolCode  string          `json:"symbol_code"`
	Description string          `json:"description"`
	Event       json.RawMessage `json:"event"`
}

// HubPublisher broadcasts enriched events to websocket subscribers of
// ChannelEvents.
type HubPublisher struct {
	hub Broadcaster
}

// NewHubPublisher wraps a websocket hub.
func NewHubPublisher(hub Broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// Name implements Publisher.
func (p *HubPublisher) Name() string { return "websocket" }

// Publish implements Publisher.
func (p *HubPublisher) Publish(_ context.Context, e Enriched) error {
	if p.hub == nil {
		return errNoSink
	}
	if !json.Valid(e.JSON) {
		return errors.New("handler: enriched payload is not valid JSON")
	}
	p.hub.Broadcast(ChannelEvents, HubEvent{
		Port:        e.Port,
		Protocol:    string(e.Protocol),
		UID:         e.UID,
		Type:        e.Type,
		SymbolCode:  e.SymbolCode,
		Description: e.Description,
		Event:       json.RawMessage(e.JSON),
	})
	return nil
}

// PointWriter is the subset of the InfluxDB client used for telemetry.
type PointWriter interface {
	WriteMessagePoint(m influxdb.MessagePoint)
	WriteTransitionPoint(tp influxdb.TransitionPoint)
}

// Telemetry records message and listener lifecycle points. It implements both
// MessageRecorder and listener.Observer.
type Telemetry struct {
	writer PointWriter
}

// NewTelemetry wraps an InfluxDB client.
func NewTelemetry(writer PointWriter) *Telemetry {
	return &Telemetry{writer: writer}
}

// RecordMessage implements MessageRecorder.
func (t *Telemetry) RecordMessage(msg listener.Message, e *Enriched) {
	if t.writer == nil {
		return
	}
	p := influxdb.MessagePoint{
		Port:       msg.Port,
		Protocol:   string(msg.Protocol),
		Bytes:      len(msg.Text),
		ReceivedAt: msg.ReceivedAt,
	}
	if e != nil {
		p.SymbolCode = e.SymbolCode
		p.Affiliation = e.Affiliation
		p.Valid = true
	}
	t.writer.WriteMessagePoint(p)
}

// ListenerTransition implements listener.Observer.
func (t *Telemetry) ListenerTransition(tr listener.Transition) {
	if t.writer == nil {
		return
	}
	t.writer.WriteTransitionPoint(influxdb.TransitionPoint{
		Port:     tr.Port,
		Protocol: string(tr.Protocol),
		From:     string(tr.From),
		To:       string(tr.To),
		Reason:   tr.Reason,
		At:       tr.At,
	})
}
