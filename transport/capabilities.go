package transport

// Capabilities describes what a broker guarantees. The correlator pairs
// replies with calls by thread, so ordering matters most: on a backend
// without it a reply can be consumed before its call and surface as an
// orphan.
type Capabilities struct {
	// Name is the registered transport name.
	Name string

	// SupportsOrdering means messages on one topic arrive in publish order.
	SupportsOrdering bool
	// SupportsPartitioning means ordering only holds within a partition.
	SupportsPartitioning bool

	SupportsAck  bool
	SupportsNack bool

	// SupportsNativeDLQ means the broker can dead-letter on its own. The
	// poison queue middleware is used either way.
	SupportsNativeDLQ bool

	// SupportsTracing means metadata travels as broker headers.
	SupportsTracing bool

	SupportsBatching bool

	// MaxMessageSize in bytes, 0 when unknown or unlimited.
	MaxMessageSize int64
}

// SupportsReliableDelivery reports at-least-once delivery (ack and nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Fits reports whether a payload of size bytes is within MaxMessageSize.
func (c Capabilities) Fits(size int) bool {
	return c.MaxMessageSize <= 0 || int64(size) <= c.MaxMessageSize
}

// Capability sets for the built-in transports.
var (
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	// IOCapabilities for the NDJSON file transport. Lines are read back in
	// the order they were appended and a nacked line is delivered again.
	IOCapabilities = Capabilities{
		Name:             "io",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	KafkaCapabilities = Capabilities{
		Name:                 "kafka",
		SupportsOrdering:     true,
		SupportsPartitioning: true,
		SupportsAck:          true,
		SupportsTracing:      true,
		SupportsBatching:     true,
		MaxMessageSize:       1 << 20,
	}

	RabbitMQCapabilities = Capabilities{
		Name:              "rabbitmq",
		SupportsOrdering:  true,
		SupportsAck:       true,
		SupportsNack:      true,
		SupportsNativeDLQ: true,
		SupportsTracing:   true,
	}

	// NATSCapabilities for NATS Core, which is at-most-once.
	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		MaxMessageSize:  1 << 20,
	}

	HTTPCapabilities = Capabilities{
		Name:            "http",
		SupportsTracing: true,
	}

	// AWSCapabilities for SNS fan-out into SQS. Standard queues do not keep
	// order.
	AWSCapabilities = Capabilities{
		Name:              "aws",
		SupportsAck:       true,
		SupportsNack:      true,
		SupportsNativeDLQ: true,
		SupportsTracing:   true,
		SupportsBatching:  true,
		MaxMessageSize:    256 << 10,
	}
)

// GetCapabilities returns the capabilities registered for transportName in
// the default registry.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
