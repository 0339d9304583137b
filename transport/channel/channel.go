// Package channel is the in-memory transport. Hook events and records stay in
// process, which suits tests and single-binary captures.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/wormhole/transport"
)

// TransportName is the PubSubSystem value for this transport.
const TransportName = "channel"

// OutputBuffer is the per-subscriber channel buffer.
const OutputBuffer = 256

// Factory creates the pub/sub pair. Tests may replace it.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	Register()
}

// Register adds the transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// GoChannelConfig is the config Build uses. Publishing blocks until the
// subscriber acks so a reply is never handed over before its call.
func GoChannelConfig() gochannel.Config {
	return gochannel.Config{
		OutputChannelBuffer:            OutputBuffer,
		BlockPublishUntilSubscriberAck: true,
	}
}

// Build returns one gochannel used as both publisher and subscriber.
func Build(_ context.Context, _ transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(GoChannelConfig(), logger)
	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}

// Capabilities returns ChannelCapabilities.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}
