// Package transport holds the broker registry used by wormhole. Each backend
// (channel, io, kafka, rabbitmq, nats, http, aws) lives in its own
// sub-package and registers a Builder from init. Import
// github.com/drblury/wormhole/transport/transports to pull in all of them.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport is the publisher and subscriber pair a Builder produces. Both
// sides may be the same value, as with the in-memory channel.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder creates a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config is the read-only view of the service config that builders need.
type Config interface {
	GetPubSubSystem() string

	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string

	GetRabbitMQURL() string

	GetNATSURL() string

	GetHTTPServerAddress() string
	GetHTTPPublisherURL() string

	GetIOFile() string

	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}

// CapabilitiesProvider is implemented by transport packages that report what
// their backend supports.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
