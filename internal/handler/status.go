package handler

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/cotbridge/internal/listener"
)

// RetainedPublisher is the subset of the MQTT client used by StatusPublisher.
type RetainedPublisher interface {
	PublishListenerStatus(port int, payload []byte) error
}

// ListenerStatus is the retained payload published for each listener.
type ListenerStatus struct {
	Port      int    `json:"port"`
	Protocol  string `json:"protocol"`
	State     string `json:"state"`
	Reason    string `json:"reason"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// StatusPublisher mirrors listener states to retained MQTT topics so late
// subscribers see the current state of every port.
type StatusPublisher struct {
	client RetainedPublisher
	logger Logger
}

// NewStatusPublisher wraps an MQTT client.
func NewStatusPublisher(client RetainedPublisher) *StatusPublisher {
	return &StatusPublisher{client: client, logger: noopLogger{}}
}

// SetLogger sets the logger used for failed publishes.
func (s *StatusPublisher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// ListenerTransition implements listener.Observer.
func (s *StatusPublisher) ListenerTransition(t listener.Transition) {
	if s.client == nil {
		return
	}

	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	status := ListenerStatus{
		Port:      t.Port,
		Protocol:  string(t.Protocol),
		State:     string(t.To),
		Reason:    t.Reason,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
	if t.Err != nil {
		status.Error = t.Err.Error()
	}

	payload, err := json.Marshal(status)
	if err != nil {
		s.logger.Warn("failed to marshal listener status", "port", t.Port, "error", err)
		return
	}
	if err := s.client.PublishListenerStatus(t.Port, payload); err != nil {
		s.logger.Warn("failed to publish listener status", "port", t.Port, "error", err)
	}
}
