package control

import (
	"fmt"

	"github.com/nerrad567/cotbridge/internal/infrastructure/mqtt"
)

// Subscriber is the subset of the MQTT client used to receive commands.
type Subscriber interface {
	SubscribeCommands(handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
}

// Logger is the logging surface used by the command subscription.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Listen subscribes to <prefix>/command/listener and applies every valid
// command to reg. Invalid commands are logged and dropped.
func Listen(sub Subscriber, reg Registry, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}
	topic := sub.Topics().ListenerCommand()

	if err := sub.SubscribeCommands(Handler(reg, logger)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	logger.Info("listening for listener commands", "topic", topic)
	return nil
}

// Handler returns the MQTT message handler that decodes and applies commands.
func Handler(reg Registry, logger Logger) mqtt.MessageHandler {
	if logger == nil {
		logger = noopLogger{}
	}
	return func(topic string, payload []byte) error {
		cmd, err := Decode(payload)
		if err != nil {
			logger.Warn("rejected listener command", "topic", topic, "error", err)
			return nil
		}

		res := cmd.Apply(reg)
		logger.Info("listener command applied",
			"action", res.Action,
			"port", res.Port,
			"state", res.State,
		)
		return nil
	}
}
