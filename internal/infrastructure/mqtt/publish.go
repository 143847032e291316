package mqtt

import "fmt"

// maxPayload is the largest payload the client will send.
const maxPayload = 1 << 20

// PublishEvent sends one enriched event to <prefix>/event/<symbol code>.
func (c *Client) PublishEvent(symbolCode string, payload []byte) error {
	return c.publish(c.topics.Event(symbolCode), payload, false)
}

// PublishListenerStatus replaces the retained state of one listener on
// <prefix>/listener/<port>/status.
func (c *Client) PublishListenerStatus(port int, payload []byte) error {
	return c.publish(c.topics.ListenerStatus(port), payload, true)
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	if len(payload) > maxPayload {
		return fmt.Errorf("%w: %s: %d byte payload exceeds %d", ErrPublish, topic, len(payload), maxPayload)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := wait(c.paho.Publish(topic, c.QoS(), retained, payload), opTimeout, ErrPublish); err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}
	return nil
}
