package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/blinkcheck/internal/logic"
)

const (
	// bufferCapacity is how many messages are kept while the broker is unreachable.
	bufferCapacity = 256

	connectTimeout       = 10 * time.Second
	connectRetryInterval = 5 * time.Second
	publishTimeout       = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed, oldest first, on
// reconnect. Buffered messages always go out before newer ones.
type RealPublisher struct {
	client      paho.Client
	systemTopic string

	// mu serializes sends with the buffer so replayed and live messages
	// keep their order.
	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
// Lifecycle events and the Last Will go to systemTopic, so the device and
// the harness each keep their own retained status.
func NewRealPublisher(broker, clientID, systemTopic string) (*RealPublisher, error) {
	p := newPublisher(nil, systemTopic)
	p.client = paho.NewClient(clientOptions(broker, clientID, systemTopic, p.replay))

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// The client keeps retrying in the background
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(client paho.Client, systemTopic string) *RealPublisher {
	return &RealPublisher{
		client:      client,
		systemTopic: systemTopic,
		buffer:      newRingBuffer(bufferCapacity),
	}
}

func clientOptions(broker, clientID, systemTopic string, onConnect func()) *paho.ClientOptions {
	return paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetWill(systemTopic, string(FormatWillPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) { onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
}

// Publish sends an LED event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.ToggleEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: TopicLED, payload: payload})
}

// PublishCheck sends a check result to the MQTT broker.
func (p *RealPublisher) PublishCheck(result logic.CheckResult) error {
	payload, err := FormatCheckPayload(result)
	if err != nil {
		return fmt.Errorf("format check payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicChecks, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the publisher's system topic.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() || !p.flushLocked() {
		p.buffer.push(msg)
		return nil
	}

	if err := p.send(msg); err != nil {
		p.buffer.push(msg)
		return err
	}
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// replay publishes everything buffered while disconnected, oldest first.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
}

// flushLocked sends the buffer in order. On the first failure the unsent
// messages go back into the buffer and it returns false. p.mu must be held.
func (p *RealPublisher) flushLocked() bool {
	msgs := p.buffer.drainAll()
	if len(msgs) == 0 {
		return true
	}
	log.Printf("mqtt: connected, replaying %d buffered messages", len(msgs))
	for i, m := range msgs {
		if err := p.send(m); err != nil {
			log.Printf("mqtt: replay: %v", err)
			for _, rest := range msgs[i:] {
				p.buffer.push(rest)
			}
			return false
		}
	}
	return true
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
