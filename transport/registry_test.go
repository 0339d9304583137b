package transport_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/wormhole/transport"
	"github.com/drblury/wormhole/transport/transporttest"
)

func memoryBuilder(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	return transport.Transport{Publisher: pubSub, Subscriber: pubSub}, nil
}

func TestRegistryRegisterAndBuild(t *testing.T) {
	reg := transport.NewRegistry()
	assert.Empty(t, reg.Names())

	reg.Register("memory", memoryBuilder)
	assert.True(t, reg.Has("memory"))
	assert.True(t, reg.Has(" Memory "))

	tr, err := reg.Build(context.Background(), &transporttest.Config{PubSubSystem: "MEMORY"}, nil)
	require.NoError(t, err)
	require.NotNil(t, tr.Publisher)
	require.NotNil(t, tr.Subscriber)

	ch, err := tr.Subscriber.Subscribe(context.Background(), "t")
	require.NoError(t, err)
	require.NoError(t, tr.Publisher.Publish("t", message.NewMessage("1", []byte("x"))))
	msg := <-ch
	msg.Ack()
	assert.Equal(t, "1", msg.UUID)
}

func TestRegistryCapabilities(t *testing.T) {
	reg := transport.NewRegistry()
	reg.RegisterWithCapabilities("ordered", memoryBuilder, transport.Capabilities{SupportsOrdering: true})

	caps, ok := reg.Lookup("ordered")
	require.True(t, ok)
	assert.Equal(t, "ordered", caps.Name, "name defaults to the registered name")
	assert.True(t, caps.SupportsOrdering)

	reg.Register("plain", memoryBuilder)
	caps, ok = reg.Lookup("plain")
	require.True(t, ok)
	assert.Equal(t, transport.Capabilities{Name: "plain"}, caps)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, transport.Capabilities{Name: "missing"}, reg.GetCapabilities("missing"))
}

func TestRegistryBuildErrors(t *testing.T) {
	reg := transport.NewRegistry()
	reg.Register("b", memoryBuilder)
	reg.Register("a", memoryBuilder)

	_, err := reg.Build(context.Background(), nil, nil)
	assert.EqualError(t, err, "config is required")

	_, err = reg.Build(context.Background(), &transporttest.Config{PubSubSystem: "zeromq"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown transport: "zeromq"`)
	assert.Contains(t, err.Error(), "registered: a, b")

	boom := errors.New("dial failed")
	reg.Register("broken", func(context.Context, transport.Config, watermill.LoggerAdapter) (transport.Transport, error) {
		return transport.Transport{}, boom
	})
	_, err = reg.Build(context.Background(), &transporttest.Config{PubSubSystem: "broken"}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken: dial failed")
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := transport.NewRegistry()
	for _, name := range []string{"nats", "aws", "kafka"} {
		reg.Register(name, memoryBuilder)
	}
	assert.Equal(t, []string{"aws", "kafka", "nats"}, reg.Names())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := transport.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Register("shared", memoryBuilder)
				reg.Has("shared")
				reg.Names()
				reg.GetCapabilities("shared")
			}
		}()
	}
	wg.Wait()
	assert.True(t, reg.Has("shared"))
}

func TestDefaultRegistryHelpers(t *testing.T) {
	transport.RegisterWithCapabilities("registry-test", memoryBuilder, transport.Capabilities{SupportsAck: true})
	assert.True(t, transport.DefaultRegistry.Has("registry-test"))
	assert.True(t, transport.GetCapabilities("registry-test").SupportsAck)

	_, err := transport.Build(context.Background(), &transporttest.Config{PubSubSystem: "registry-test"}, nil)
	require.NoError(t, err)
}

func TestCapabilities(t *testing.T) {
	assert.True(t, transport.ChannelCapabilities.SupportsReliableDelivery())
	assert.False(t, transport.KafkaCapabilities.SupportsReliableDelivery())

	assert.True(t, transport.ChannelCapabilities.Fits(10<<20), "no limit")
	assert.True(t, transport.AWSCapabilities.Fits(256<<10))
	assert.False(t, transport.AWSCapabilities.Fits(256<<10+1))
}

func TestBuiltInCapabilitySetsAreNamed(t *testing.T) {
	sets := map[string]transport.Capabilities{
		"channel":  transport.ChannelCapabilities,
		"io":       transport.IOCapabilities,
		"kafka":    transport.KafkaCapabilities,
		"rabbitmq": transport.RabbitMQCapabilities,
		"nats":     transport.NATSCapabilities,
		"http":     transport.HTTPCapabilities,
		"aws":      transport.AWSCapabilities,
	}
	for name, caps := range sets {
		assert.Equal(t, name, caps.Name)
	}
	assert.False(t, transport.NATSCapabilities.SupportsOrdering)
	assert.False(t, transport.AWSCapabilities.SupportsOrdering)
}
