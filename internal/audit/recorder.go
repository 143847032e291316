package audit

import (
	"context"
	"time"

	"github.com/nerrad567/cotbridge/internal/listener"
)

// writeTimeout bounds each insert made from an observer callback.
const writeTimeout = 5 * time.Second

// Logger is the logging surface the Recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder stores every registry transition it observes.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger used for failed writes.
func (r *Recorder) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// ListenerTransition implements listener.Observer. Write failures are logged
// and never propagate back into the registry.
func (r *Recorder) ListenerTransition(t listener.Transition) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, EntryFromTransition(t)); err != nil {
		r.logger.Warn("failed to record listener transition",
			"port", t.Port,
			"reason", t.Reason,
			"error", err,
		)
	}
}

// EntryFromTransition converts a registry transition into an audit entry.
func EntryFromTransition(t listener.Transition) *Entry {
	e := &Entry{
		Port:      t.Port,
		Protocol:  string(t.Protocol),
		From:      string(t.From),
		To:        string(t.To),
		Reason:    t.Reason,
		CreatedAt: t.At,
	}
	if t.Err != nil {
		e.Error = t.Err.Error()
	}
	return e
}
