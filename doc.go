// Package wormhole correlates intercepted XPC traffic into request/reply
// records. An instrumentation hook reports every send, reply callback and
// event-handler delivery as an Event; the Correlator pairs asynchronous calls
// with their replies by thread id, decodes embedded bplist17 documents into
// JSON and filters noisy system services.
//
// The correlator runs either directly (Correlator.Observe, or the
// "wormhole correlate" command) or hosted by a Service on a Watermill router
// that consumes events from EventsTopic and publishes records to
// RecordsTopic. The transport (Go channels, NDJSON file, Kafka, RabbitMQ,
// NATS, HTTP, or AWS SNS/SQS) is selected by Config.PubSubSystem.
//
// # Decoding
//
// DecodeDocument turns a bplist17 buffer into a Value tree whose MarshalJSON
// renders the JSON form. ExtractEmbedded finds a document behind a message
// header.
//
// # Middleware
//
// The default middleware chain covers correlation ID injection, structured
// logging, OpenTelemetry tracing, Prometheus metrics, retry with exponential
// backoff, poison queue forwarding, optional event schema validation, and
// panic recovery. Custom middleware can be added via
// ServiceDependencies.Middlewares.
//
// # Transports
//
// Transports live under transport/ and register themselves with the default
// registry. Import transport/transports for all of them, or a single
// transport package to keep the binary small. Capabilities describe what a
// backend guarantees; correlation relies on per-thread ordering, which the
// service logs about when the transport does not provide it.
package wormhole
