// Package handler implements the default message handler: every received
// message is decoded as a CoT event, enriched with its MIL-STD-2525B symbol
// code and description, serialized to JSON and handed to the configured
// publishers.
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/cotbridge/internal/cot"
	"github.com/nerrad567/cotbridge/internal/listener"
	"github.com/nerrad567/cotbridge/internal/symbol"
)

// Enriched is one successfully decoded and symbolized event.
type Enriched struct {
	Port        int
	Protocol    listener.Protocol
	Remote      string
	UID         string
	Type        string
	SymbolCode  string
	Description string
	Affiliation string
	JSON        []byte
	Bytes       int
	ReceivedAt  time.Time
}

// Publisher forwards enriched events to a sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, e Enriched) error
}

// MessageRecorder observes every handled message. e is nil when the message
// could not be decoded.
type MessageRecorder interface {
	RecordMessage(msg listener.Message, e *Enriched)
}

// Logger defines the logging interface used by the Enricher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Enricher is the default listener.Handler and listener.Dumper.
//
// Decode failures are returned to the listener: a UDP listener logs them and
// keeps reading, a TCP listener terminates. Publisher errors are logged and
// never returned.
type Enricher struct {
	symbolizer *symbol.Symbolizer
	indent     int
	logger     Logger
	publishers []Publisher
	recorders  []MessageRecorder
}

// NewEnricher creates an Enricher. A nil symbolizer selects the default
// catalog; a negative indent selects symbol.DefaultIndent.
func NewEnricher(s *symbol.Symbolizer, indent int) *Enricher {
	if s == nil {
		s = symbol.New(nil)
	}
	if indent < 0 {
		indent = symbol.DefaultIndent
	}
	return &Enricher{
		symbolizer: s,
		indent:     indent,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for this enricher.
func (h *Enricher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	h.logger = logger
}

// AddPublisher appends a sink. Publishers are called in the order added.
// Not safe to call once listeners are running.
func (h *Enricher) AddPublisher(p Publisher) {
	if p != nil {
		h.publishers = append(h.publishers, p)
	}
}

// AddRecorder appends a message recorder.
// Not safe to call once listeners are running.
func (h *Enricher) AddRecorder(r MessageRecorder) {
	if r != nil {
		h.recorders = append(h.recorders, r)
	}
}

// Enrich decodes text and produces the enriched event without publishing it.
func (h *Enricher) Enrich(msg listener.Message) (*Enriched, error) {
	text := cot.TrimTrailing(msg.Text)

	ev, err := cot.Parse(text)
	if err != nil {
		return nil, err
	}

	tree, err := h.symbolizer.Augment(text)
	if err != nil {
		return nil, err
	}
	out, err := tree.Serialize(h.indent)
	if err != nil {
		return nil, err
	}

	return &Enriched{
		Port:        msg.Port,
		Protocol:    msg.Protocol,
		Remote:      msg.Remote,
		UID:         ev.UID,
		Type:        ev.Type,
		SymbolCode:  h.symbolizer.SymbolCode(ev.Type),
		Description: h.symbolizer.Description(ev.Type),
		Affiliation: Affiliation(ev.Type),
		JSON:        []byte(out),
		Bytes:       len(msg.Text),
		ReceivedAt:  msg.ReceivedAt,
	}, nil
}

// HandleMessage implements listener.Handler. It returns an error only when
// the message is not a valid CoT event.
func (h *Enricher) HandleMessage(ctx context.Context, msg listener.Message) error {
	e, err := h.Enrich(msg)
	h.record(msg, e)
	if err != nil {
		return fmt.Errorf("decoding CoT event: %w", err)
	}

	h.logger.Info("cot event",
		"port", e.Port,
		"protocol", e.Protocol,
		"uid", e.UID,
		"type", e.Type,
		"symbol_code", e.SymbolCode,
		"description", e.Description,
	)
	h.logger.Debug("enriched event", "json", string(e.JSON))

	for _, p := range h.publishers {
		if err := p.Publish(ctx, *e); err != nil {
			h.logger.Warn("publish failed",
				"sink", p.Name(),
				"uid", e.UID,
				"error", err,
			)
		}
	}
	return nil
}

func (h *Enricher) record(msg listener.Message, e *Enriched) {
	for _, r := range h.recorders {
		r.RecordMessage(msg, e)
	}
}

// Affiliation returns the lowercase affiliation letter of an atom type
// ("f" for a-f-G-U-C), or "" for non-atom types.
func Affiliation(cotType string) string {
	if len(cotType) < 3 || cotType[0] != 'a' || cotType[1] != '-' {
		return ""
	}
	return strings.ToLower(cotType[2:3])
}
