package mqtt

// Message is an inbound MQTT message.
type Message interface {
	Topic() string
	Payload() []byte
	Retained() bool
}

// Handler processes messages received on a subscription.
type Handler func(Message)

// Publisher sends payloads to a topic.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Subscriber registers handlers for topics. Subscriptions survive
// reconnects.
type Subscriber interface {
	Subscribe(topic string, qos byte, h Handler) error
}

// Client is a connected MQTT session.
type Client interface {
	Publisher
	Subscriber
	Disconnect()
}
