package mqtt

import (
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/cew/core/mqtt"
)

// Published is a message captured by MockClient.
type Published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// MockClient is an in-memory Client used in tests. Published messages are
// recorded and Deliver dispatches to the registered handlers.
type MockClient struct {
	mu        sync.Mutex
	handlers  map[string]coremqtt.Handler
	published []Published
	FailTopic string
	closed    bool
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{handlers: make(map[string]coremqtt.Handler)}
}

// Publish records the message or fails for FailTopic.
func (m *MockClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopic != "" && topic == m.FailTopic {
		return fmt.Errorf("publish %s failed", topic)
	}
	m.published = append(m.published, Published{Topic: topic, QoS: qos, Retained: retained, Payload: append([]byte(nil), payload...)})
	return nil
}

func (m *MockClient) Subscribe(topic string, _ byte, h coremqtt.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = h
	return nil
}

func (m *MockClient) Disconnect() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Closed reports whether Disconnect was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Deliver invokes the handler subscribed to topic. It reports whether a
// handler was found.
func (m *MockClient) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		return false
	}
	h(message{topic: topic, payload: payload})
	return true
}

// Messages returns a copy of every published message.
func (m *MockClient) Messages() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.published...)
}

// Last returns the most recent message published on topic.
func (m *MockClient) Last(topic string) (Published, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.published) - 1; i >= 0; i-- {
		if m.published[i].Topic == topic {
			return m.published[i], true
		}
	}
	return Published{}, false
}

type message struct {
	topic   string
	payload []byte
}

func (m message) Topic() string   { return m.topic }
func (m message) Payload() []byte { return m.payload }
func (m message) Retained() bool  { return false }
