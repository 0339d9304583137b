/*
Package runtime hosts the wormhole correlator on a Watermill router.

# Architecture Overview

Hook events arrive as JSON messages on the events topic. The correlator
handler decodes each one, feeds it through a correlator.Correlator and
publishes the records it completes to the records topic, encoded as JSON or
CBOR. Everything stateful lives in the correlator; the runtime only moves
messages and exposes metrics.

# Package Structure

## Core Service (service.go)

The Service struct wires together:
  - Message router (Watermill)
  - Publisher and subscriber connections built by the transport factory
  - Middleware chain
  - The correlator and its Prometheus metrics
  - HTTP servers for /metrics and /stats

## Handler (handler.go, codec.go)

CorrelatorHandler turns event messages into record messages. RecordCodec
renders records; record messages carry the service, direction, thread id,
record kind and encoding in their metadata.

## Middleware (middleware.go)

The default chain, outermost first:
  - CorrelationID: Ensures message traceability
  - LogMessages: Debug logging of message payloads
  - Tracer: OpenTelemetry span per event
  - Metrics: Watermill Prometheus router metrics
  - Retry: Exponential backoff, never for unprocessable events
  - PoisonQueue: Diverts unprocessable events, or drops them when no queue is set
  - EventSchema: JSON schema check of inbound events (opt-in)
  - Recoverer: Panic recovery

## Publishing (publisher.go)

PublishEvent puts a hook event on the events topic for ingest front-ends.

# Sub-packages

  - bplist17/: Decoder for embedded binary object graph documents
  - correlator/: Call/reply pairing and payload normalization
  - config/: Service configuration with validation and YAML loading
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for record IDs
  - jsoncodec/, cborcodec/: Serialization
  - logging/: Logger interface and adapters
  - metadata/: Message metadata utilities and reserved keys
  - transport/: Bridge from config to the transport registry

# Usage Example

	cfg, err := config.Load("wormhole.yaml")
	if err != nil {
		return err
	}

	svc, err := runtime.NewService(cfg, logger, ctx, runtime.ServiceDependencies{})
	if err != nil {
		return err
	}

	return svc.Start(ctx)
*/
package runtime
