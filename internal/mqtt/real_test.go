package mqtt

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/blinkcheck/internal/logic"
)

// doneToken is a paho token that has already completed.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool {
	return true
}

func (t doneToken) WaitTimeout(time.Duration) bool {
	return true
}

func (t doneToken) Error() error {
	return t.err
}

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// stubClient records publishes and lets tests flip the connection state.
type stubClient struct {
	open    atomic.Bool
	failing atomic.Bool

	mu   sync.Mutex
	sent []bufferedMsg
}

func (c *stubClient) IsConnected() bool {
	return c.open.Load()
}

func (c *stubClient) IsConnectionOpen() bool {
	return c.open.Load()
}

func (c *stubClient) Connect() paho.Token {
	return doneToken{}
}

func (c *stubClient) Disconnect(uint) {}

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if c.failing.Load() {
		return doneToken{err: errors.New("not connected")}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, bufferedMsg{topic: topic, payload: payload.([]byte), qos: qos, retained: retained})
	return doneToken{}
}

func (c *stubClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return doneToken{}
}

func (c *stubClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return doneToken{}
}

func (c *stubClient) Unsubscribe(...string) paho.Token {
	return doneToken{}
}

func (c *stubClient) AddRoute(string, paho.MessageHandler) {}

func (c *stubClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

func (c *stubClient) messages() []bufferedMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bufferedMsg, len(c.sent))
	copy(out, c.sent)
	return out
}

func toggle(ms int) logic.ToggleEvent {
	return logic.ToggleEvent{
		Timestamp: ts.Add(time.Duration(ms) * time.Millisecond),
		From:      logic.Low,
		To:        logic.High,
		Cause:     logic.CausePress,
	}
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	c := &stubClient{}
	p := newPublisher(c, TopicSystem)

	for i := 0; i < 3; i++ {
		if err := p.Publish(toggle(i)); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if len(c.messages()) != 0 {
		t.Fatal("nothing should be sent while disconnected")
	}

	c.open.Store(true)
	p.replay()

	sent := c.messages()
	if len(sent) != 3 {
		t.Fatalf("expected 3 replayed messages, got %d", len(sent))
	}
	for i, m := range sent {
		want, _ := FormatPayload(toggle(i))
		if string(m.payload) != string(want) {
			t.Errorf("message %d out of order: %s", i, m.payload)
		}
	}
	if p.buffer.len() != 0 {
		t.Errorf("buffer should be empty, has %d", p.buffer.len())
	}
}

func TestRealPublisherBufferedGoFirst(t *testing.T) {
	c := &stubClient{}
	p := newPublisher(c, TopicSystem)

	p.Publish(toggle(0))
	// Connected again, but the reconnect handler has not run yet
	c.open.Store(true)
	p.Publish(toggle(1))

	sent := c.messages()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	first, _ := FormatPayload(toggle(0))
	if string(sent[0].payload) != string(first) {
		t.Errorf("live message overtook the buffered one: %s", sent[0].payload)
	}

	p.replay()
	if len(c.messages()) != 2 {
		t.Error("replay must not resend delivered messages")
	}
}

func TestRealPublisherSendFailureBuffers(t *testing.T) {
	c := &stubClient{}
	c.open.Store(true)
	c.failing.Store(true)
	p := newPublisher(c, TopicSystem)

	if err := p.Publish(toggle(0)); err == nil {
		t.Error("expected send error")
	}
	// Replay fails too; the message stays buffered and blocks newer ones
	if err := p.Publish(toggle(1)); err != nil {
		t.Errorf("message queued behind the buffer should not error: %v", err)
	}
	if p.buffer.len() != 2 {
		t.Fatalf("expected 2 buffered messages, got %d", p.buffer.len())
	}

	c.failing.Store(false)
	p.replay()
	sent := c.messages()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages after recovery, got %d", len(sent))
	}
	first, _ := FormatPayload(toggle(0))
	if string(sent[0].payload) != string(first) {
		t.Errorf("unexpected order after recovery: %s", sent[0].payload)
	}
}

func TestRealPublisherConcurrentReconnects(t *testing.T) {
	c := &stubClient{}
	p := newPublisher(c, TopicSystem)

	const workers, each = 4, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				p.Publish(toggle(w*each + i))
			}
		}(w)
	}
	for i := 0; i < 20; i++ {
		c.open.Store(i%2 == 0)
		p.replay()
	}
	wg.Wait()

	c.open.Store(true)
	p.replay()

	if got := len(c.messages()); got != workers*each {
		t.Errorf("expected %d messages delivered, got %d", workers*each, got)
	}
	if p.buffer.len() != 0 {
		t.Errorf("%d messages stranded in the buffer", p.buffer.len())
	}
}

func TestRealPublisherSystemTopic(t *testing.T) {
	c := &stubClient{}
	c.open.Store(true)
	p := newPublisher(c, TopicHarnessSystem)

	if err := p.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishCheck(logic.CheckResult{Name: "steady_state", Started: ts}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := c.messages()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if sent[0].topic != TopicHarnessSystem || !sent[0].retained || sent[0].qos != 1 {
		t.Errorf("unexpected system message: %+v", sent[0])
	}
	if sent[1].topic != TopicChecks || sent[1].retained || sent[1].qos != 1 {
		t.Errorf("unexpected check message: %+v", sent[1])
	}
}

func TestClientOptionsWill(t *testing.T) {
	for _, topic := range []string{TopicSystem, TopicHarnessSystem} {
		opts := clientOptions("tcp://broker:1883", "blinkcheck-test", topic, func() {})
		if !opts.WillEnabled || opts.WillTopic != topic {
			t.Errorf("will on %q, want %q", opts.WillTopic, topic)
		}
		if !opts.WillRetained || opts.WillQos != 1 {
			t.Errorf("will should be retained at QoS 1: %+v", opts)
		}
		if string(opts.WillPayload) != string(FormatWillPayload()) {
			t.Errorf("unexpected will payload: %s", opts.WillPayload)
		}
		if opts.ClientID != "blinkcheck-test" || !opts.AutoReconnect {
			t.Errorf("unexpected options: %+v", opts)
		}
	}
}
