package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/wormhole/internal/runtime/config"
	"github.com/drblury/wormhole/internal/runtime/correlator"
	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/wormhole/internal/runtime/logging"
	transportpkg "github.com/drblury/wormhole/internal/runtime/transport"
)

type publishedMessage struct {
	topic string
	msg   *message.Message
}

type testPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, m := range messages {
		p.published = append(p.published, publishedMessage{topic: topic, msg: m})
	}
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]publishedMessage, len(p.published))
	copy(clone, p.published)
	return clone
}

type testSubscriber struct {
	err error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

// staticFactory hands out a fixed publisher/subscriber pair.
type staticFactory struct {
	pub  message.Publisher
	sub  message.Subscriber
	caps transportpkg.Capabilities
	err  error
}

func (f staticFactory) Build(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transportpkg.Transport, error) {
	if f.err != nil {
		return transportpkg.Transport{}, f.err
	}
	return transportpkg.Transport{Publisher: f.pub, Subscriber: f.sub, Capabilities: f.caps}, nil
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewDiscardLogger()
}

// newTestService builds a Service by hand, without a transport, for
// middleware tests.
func newTestService(t *testing.T) *Service {
	t.Helper()
	log := newTestLogger()
	router, err := message.NewRouter(message.RouterConfig{}, loggingpkg.NewWatermillAdapter(log))
	require.NoError(t, err)
	conf := configpkg.Default()
	return &Service{
		Conf:       &conf,
		Logger:     log,
		router:     router,
		publisher:  &testPublisher{},
		subscriber: &testSubscriber{},
	}
}

func eventPayload(t *testing.T, ev correlator.Event) []byte {
	t.Helper()
	b, err := jsoncodec.Marshal(ev)
	require.NoError(t, err)
	return b
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		msg.Ack()
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func waitRunning(t *testing.T, svc *Service) {
	t.Helper()
	select {
	case <-svc.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
}

type mockLogger struct{}

func (m mockLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger { return m }
func (m mockLogger) Debug(msg string, fields loggingpkg.LogFields)             {}
func (m mockLogger) Info(msg string, fields loggingpkg.LogFields)              {}
func (m mockLogger) Error(msg string, err error, fields loggingpkg.LogFields)  {}
func (m mockLogger) Trace(msg string, fields loggingpkg.LogFields)             {}

type capturingLogger struct {
	mockLogger
	mu   sync.Mutex
	msgs []string
}

func (c *capturingLogger) Info(msg string, fields loggingpkg.LogFields) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func (c *capturingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func (c *capturingLogger) With(loggingpkg.LogFields) loggingpkg.ServiceLogger { return c }

func (c *capturingLogger) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}
