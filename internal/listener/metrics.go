package listener

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors shared by all listeners.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	messagesReceived *prometheus.CounterVec
	bytesReceived    *prometheus.CounterVec
	handlerErrors    *prometheus.CounterVec
	faults           *prometheus.CounterVec
	running          *prometheus.GaugeVec
}

// NewMetrics creates listener metrics and registers them with reg.
// A nil registerer returns nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	labels := []string{"port", "protocol"}
	m := &Metrics{
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cotbridge",
			Subsystem: "listener",
			Name:      "messages_received_total",
			Help:      "Total CoT messages received",
		}, labels),
		bytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cotbridge",
			Subsystem: "listener",
			Name:      "bytes_received_total",
			Help:      "Total message bytes received",
		}, labels),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cotbridge",
			Subsystem: "listener",
			Name:      "handler_errors_total",
			Help:      "Messages the handler rejected",
		}, labels),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cotbridge",
			Subsystem: "listener",
			Name:      "faults_total",
			Help:      "Listeners that terminated without a stop request",
		}, labels),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cotbridge",
			Subsystem: "listener",
			Name:      "running",
			Help:      "Number of running listeners",
		}, []string{"protocol"}),
	}

	reg.MustRegister(m.messagesReceived, m.bytesReceived, m.handlerErrors, m.faults, m.running)
	return m
}

func (m *Metrics) messageReceived(port int, protocol Protocol, size int) {
	if m == nil {
		return
	}
	p := strconv.Itoa(port)
	m.messagesReceived.WithLabelValues(p, string(protocol)).Inc()
	m.bytesReceived.WithLabelValues(p, string(protocol)).Add(float64(size))
}

func (m *Metrics) handlerError(port int, protocol Protocol) {
	if m == nil {
		return
	}
	m.handlerErrors.WithLabelValues(strconv.Itoa(port), string(protocol)).Inc()
}

func (m *Metrics) fault(port int, protocol Protocol) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(strconv.Itoa(port), string(protocol)).Inc()
}

func (m *Metrics) started(protocol Protocol) {
	if m == nil {
		return
	}
	m.running.WithLabelValues(string(protocol)).Inc()
}

func (m *Metrics) stopped(protocol Protocol) {
	if m == nil {
		return
	}
	m.running.WithLabelValues(string(protocol)).Dec()
}
