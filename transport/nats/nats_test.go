package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/wormhole/transport"
	"github.com/drblury/wormhole/transport/transporttest"
)

type stubPubSub struct{ closed bool }

func (s *stubPubSub) Publish(string, ...*message.Message) error { return nil }
func (s *stubPubSub) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (s *stubPubSub) Close() error { s.closed = true; return nil }

func TestRegistersOnImport(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, Capabilities(), caps)
	assert.False(t, caps.SupportsOrdering)
}

func TestBuildUsesCoreNATS(t *testing.T) {
	origPub, origSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() { PublisherFactory, SubscriberFactory = origPub, origSub })

	var pubCfg wmnats.PublisherConfig
	var subCfg wmnats.SubscriberConfig
	stub := &stubPubSub{}
	PublisherFactory = func(cfg wmnats.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		pubCfg = cfg
		return stub, nil
	}
	SubscriberFactory = func(cfg wmnats.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		subCfg = cfg
		return stub, nil
	}

	tr, err := Build(context.Background(), &transporttest.Config{NATSURL: "nats://localhost:4222"}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Same(t, stub, tr.Publisher)

	assert.Equal(t, "nats://localhost:4222", pubCfg.URL)
	assert.True(t, pubCfg.JetStream.Disabled)
	assert.Len(t, pubCfg.NatsOptions, len(ConnectOptions()))
	assert.Equal(t, "nats://localhost:4222", subCfg.URL)
	assert.True(t, subCfg.JetStream.Disabled)
	assert.Equal(t, 1, subCfg.SubscribersCount)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	assert.EqualError(t, err, "nats URL is required")

	origPub, origSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() { PublisherFactory, SubscriberFactory = origPub, origSub })

	cfg := &transporttest.Config{NATSURL: "nats://localhost:4222"}
	PublisherFactory = func(wmnats.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
		return nil, errors.New("publisher error")
	}
	_, err = Build(context.Background(), cfg, watermill.NopLogger{})
	assert.ErrorContains(t, err, "publisher error")

	stub := &stubPubSub{}
	PublisherFactory = func(wmnats.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
		return stub, nil
	}
	SubscriberFactory = func(wmnats.SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error) {
		return nil, errors.New("subscriber error")
	}
	_, err = Build(context.Background(), cfg, watermill.NopLogger{})
	assert.ErrorContains(t, err, "subscriber error")
	assert.True(t, stub.closed)
}
