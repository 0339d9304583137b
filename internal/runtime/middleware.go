package runtime

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/wormhole/internal/runtime/errors"
	idspkg "github.com/drblury/wormhole/internal/runtime/ids"
	loggingpkg "github.com/drblury/wormhole/internal/runtime/logging"
	metadatapkg "github.com/drblury/wormhole/internal/runtime/metadata"
)

const tracerName = "github.com/drblury/wormhole"

// MiddlewareBuilder constructs a handler middleware using the provided service instance.
type MiddlewareBuilder func(*Service) (message.HandlerMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a Service router.
// A builder may return a nil middleware to opt out.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    MiddlewareBuilder
}

// RetryMiddlewareConfig customises the retry middleware. Zero fields are
// taken from the service config, then from library defaults.
type RetryMiddlewareConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RetryIf         func(error) bool
}

func (cfg RetryMiddlewareConfig) withDefaults() RetryMiddlewareConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 16 * time.Second
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = func(err error) bool { return !errspkg.IsUnprocessable(err) }
	}
	return cfg
}

// DefaultMiddlewares returns the standard chain, outermost first. Schema
// validation runs inside the poison queue so rejected events are diverted.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
		RetryMiddleware(RetryMiddlewareConfig{}),
		PoisonQueueMiddleware(nil),
		EventSchemaMiddleware(),
		RecovererMiddleware(),
	}
}

// MetricsMiddleware adds Watermill's Prometheus router metrics and serves
// /metrics on the metrics port.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if !s.Conf.MetricsEnabled {
				return nil, nil
			}

			metricsBuilder := metrics.NewPrometheusMetricsBuilder(
				s.getRegisterer(),
				"wormhole",
				s.Conf.PubSubSystem,
			)

			metricsBuilder.AddPrometheusRouterMetrics(s.router)

			if s.Conf.MetricsPort > 0 {
				s.RegisterHTTPHandler(s.Conf.MetricsPort, "/metrics", s.metricsHandler())
			}

			return metricsBuilder.NewRouterMiddleware().Middleware, nil
		},
	}
}

// CorrelationIDMiddleware ensures each processed message carries a correlation identifier.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "correlation_id",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return s.correlationIDMiddleware(), nil
		},
	}
}

// LogMessagesMiddleware logs the payload and metadata of handled messages at debug level.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				return nil, errors.New("log messages middleware requires a logger")
			}
			return s.logMessagesMiddleware(l), nil
		},
	}
}

// EventSchemaMiddleware rejects payloads that do not match the event schema
// when ValidateEvents is set.
func EventSchemaMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "event_schema",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if !s.Conf.ValidateEvents {
				return nil, nil
			}
			validator, err := NewEventValidator()
			if err != nil {
				return nil, err
			}
			return s.eventSchemaMiddleware(validator), nil
		},
	}
}

// TracerMiddleware wraps handler execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return s.tracerMiddleware(), nil
		},
	}
}

// RetryMiddleware retries failed handler runs with exponential backoff.
// Unprocessable events are never retried unless RetryIf says otherwise.
func RetryMiddleware(cfg RetryMiddlewareConfig) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "retry",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return s.retryMiddlewareWithConfig(s.retryConfig(cfg)), nil
		},
	}
}

// PoisonQueueMiddleware publishes messages whose error matches filter to the
// poison queue. Without a poison queue they are logged and dropped.
func PoisonQueueMiddleware(filter func(error) bool) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "poison_queue",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			f := filter
			if f == nil {
				f = errspkg.IsUnprocessable
			}
			if s.Conf != nil && s.Conf.PoisonQueue == "" {
				return s.dropMiddlewareWithFilter(f), nil
			}
			return s.poisonMiddlewareWithFilter(f)
		},
	}
}

// RecovererMiddleware converts panics into handler errors so they can be retried.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "recoverer",
		Middleware: middleware.Recoverer,
	}
}

// RegisterMiddleware attaches the supplied middleware to the router.
func (s *Service) RegisterMiddleware(cfg MiddlewareRegistration) error {
	if s.router == nil {
		return errors.New("router is not initialised")
	}

	var mw message.HandlerMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return errors.New("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	s.router.AddMiddleware(mw)
	return nil
}

func (s *Service) correlationIDMiddleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			if msg.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
				msg.Metadata.Set(metadatapkg.KeyCorrelationID, idspkg.CreateULID())
			}
			return h(msg)
		}
	}
}

func (s *Service) eventSchemaMiddleware(validator *EventValidator) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			if err := validator.Validate(msg.Payload); err != nil {
				s.Logger.Debug("Rejecting event", loggingpkg.LogFields{
					"message_uuid": msg.UUID,
					"error":        err.Error(),
				})
				return nil, &errspkg.UnprocessableEventError{MessageUUID: msg.UUID, Err: err}
			}
			return h(msg)
		}
	}
}

func (s *Service) poisonMiddlewareWithFilter(filter func(err error) bool) (message.HandlerMiddleware, error) {
	if s.Conf == nil {
		return nil, errors.New("service config is required for poison queue middleware")
	}
	if s.publisher == nil {
		return nil, errors.New("publisher is required for poison queue middleware")
	}

	return middleware.PoisonQueueWithFilter(
		s.publisher,
		s.Conf.PoisonQueue,
		filter,
	)
}

// dropMiddlewareWithFilter acks messages whose error matches filter so the
// broker does not redeliver them.
func (s *Service) dropMiddlewareWithFilter(filter func(err error) bool) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			out, err := h(msg)
			if err != nil && filter(err) {
				s.Logger.Error("Dropping unprocessable message", err, loggingpkg.LogFields{
					"message_uuid": msg.UUID,
				})
				return nil, nil
			}
			return out, err
		}
	}
}

func (s *Service) logMessagesMiddleware(logger loggingpkg.ServiceLogger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			logger.Debug("Processing event", loggingpkg.LogFields{
				"message_uuid": msg.UUID,
				"service":      msg.Metadata.Get(metadatapkg.KeyService),
				"thread_id":    msg.Metadata.Get(metadatapkg.KeyThreadID),
				"payload":      payloadPreview(msg.Payload),
			})
			return h(msg)
		}
	}
}

// maxLoggedPayload caps the payload bytes copied into debug logs. Hook
// events can carry whole decoded documents.
const maxLoggedPayload = 512

func payloadPreview(payload []byte) string {
	if len(payload) <= maxLoggedPayload {
		return string(payload)
	}
	return fmt.Sprintf("%s... (%d bytes)", payload[:maxLoggedPayload], len(payload))
}

func (s *Service) retryConfig(cfg RetryMiddlewareConfig) RetryMiddlewareConfig {
	if s.Conf != nil {
		if cfg.MaxRetries <= 0 {
			cfg.MaxRetries = s.Conf.RetryMaxRetries
		}
		if cfg.InitialInterval <= 0 {
			cfg.InitialInterval = s.Conf.RetryInitialInterval
		}
		if cfg.MaxInterval <= 0 {
			cfg.MaxInterval = s.Conf.RetryMaxInterval
		}
	}
	return cfg.withDefaults()
}

func (s *Service) retryMiddlewareWithConfig(cfg RetryMiddlewareConfig) message.HandlerMiddleware {
	normalized := cfg.withDefaults()
	return middleware.Retry{
		MaxRetries:      normalized.MaxRetries,
		InitialInterval: normalized.InitialInterval,
		MaxInterval:     normalized.MaxInterval,
		ShouldRetry: func(params middleware.RetryParams) bool {
			return normalized.RetryIf(params.Err)
		},
	}.Middleware
}

// tracerMiddleware opens a span per message and stamps its ids onto the
// metadata so records can be joined with traces.
func (s *Service) tracerMiddleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx, span := otel.Tracer(tracerName).Start(
				msg.Context(),
				"ProcessEvent",
				trace.WithSpanKind(trace.SpanKindConsumer),
			)
			defer span.End()
			msg.SetContext(ctx)

			span.SetAttributes(
				attribute.String("message.uuid", msg.UUID),
				attribute.String("wormhole.service", msg.Metadata.Get(metadatapkg.KeyService)),
			)
			if sc := span.SpanContext(); sc.IsValid() {
				msg.Metadata.Set(metadatapkg.KeyTraceID, sc.TraceID().String())
				msg.Metadata.Set(metadatapkg.KeySpanID, sc.SpanID().String())
			}

			out, err := h(msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.SetAttributes(attribute.Int("wormhole.records", len(out)))
			return out, err
		}
	}
}

func (s *Service) metricsHandler() http.Handler {
	if gatherer, ok := s.getRegisterer().(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

func (s *Service) getRegisterer() prometheus.Registerer {
	if s.registerer == nil {
		return prometheus.DefaultRegisterer
	}
	return s.registerer
}

func middlewareName(reg MiddlewareRegistration) string {
	if reg.Name == "" {
		return "anonymous_middleware"
	}
	return reg.Name
}

func registrationError(reg MiddlewareRegistration, err error) error {
	return fmt.Errorf("failed to register middleware %s: %w", middlewareName(reg), err)
}
