package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// SubscribeCommands subscribes handler to <prefix>/command/listener. The
// subscription is restored after every reconnect; a second call replaces
// the handler.
func (c *Client) SubscribeCommands(handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribe)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	topic := c.topics.ListenerCommand()
	if err := wait(c.paho.Subscribe(topic, c.QoS(), c.dispatch(handler)), opTimeout, ErrSubscribe); err != nil {
		return err
	}

	c.mu.Lock()
	c.commands = handler
	c.mu.Unlock()
	return nil
}

// dispatch adapts handler to paho. Returned errors are logged and panics
// recovered.
func (c *Client) dispatch(handler MessageHandler) func(pahomqtt.Client, pahomqtt.Message) {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("command handler panicked", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("command handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}
