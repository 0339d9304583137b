package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/drblury/wormhole/internal/runtime/config"
	"github.com/drblury/wormhole/internal/runtime/correlator"
	errspkg "github.com/drblury/wormhole/internal/runtime/errors"
	loggingpkg "github.com/drblury/wormhole/internal/runtime/logging"
	transportpkg "github.com/drblury/wormhole/internal/runtime/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators that the Service can use.
type ServiceDependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
	// Registerer receives the correlator and router collectors. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// Now overrides the correlator clock for events without a timestamp.
	Now func() time.Time
}

// Service hosts the correlator on a Watermill router: hook events are
// consumed from EventsTopic and records are published to RecordsTopic.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	correlator *correlator.Correlator
	metrics    *CorrelatorMetrics
	codec      RecordCodec
	registerer prometheus.Registerer

	capabilities transportpkg.Capabilities

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService validates conf, builds the transport and router, and registers
// the correlator handler. Empty topic and encoding fields of conf are filled
// with defaults in place. Call Start to begin consuming.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	conf.ApplyDefaults()
	if err := errspkg.NewConfigValidationError(conf.Validate()); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	codec, err := NewRecordCodec(conf.RecordEncoding)
	if err != nil {
		return nil, err
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating event service",
		loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
			"events_topic":  conf.EventsTopic,
			"records_topic": conf.RecordsTopic,
			"config":        conf,
		})

	s := &Service{
		Conf:       conf,
		Logger:     log,
		codec:      codec,
		registerer: deps.Registerer,
	}

	s.metrics = NewCorrelatorMetrics(s.getRegisterer())
	if err := s.metrics.Register(); err != nil {
		return nil, fmt.Errorf("register correlator metrics: %w", err)
	}

	s.correlator = correlator.New(correlator.Options{
		Logger:              log.With(loggingpkg.LogFields{"component": "correlator"}),
		Metrics:             s.metrics,
		NoiseServices:       conf.NoiseServices,
		DisableDefaultNoise: conf.DisableDefaultNoise,
		PendingCapacity:     conf.PendingCapacity,
		PendingTTL:          conf.PendingTTL,
		MaxDecodeDepth:      conf.MaxDecodeDepth,
		Now:                 deps.Now,
	})

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build %s transport: %w", conf.PubSubSystem, err)
	}

	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber
	s.capabilities = transport.Capabilities
	if !transport.Capabilities.SupportsOrdering {
		log.Info("Transport does not guarantee ordering, replies may overtake their calls", loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
		})
	}

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}

	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}
	if err := s.registerCorrelatorHandler(); err != nil {
		return nil, err
	}
	if conf.MetricsPort > 0 {
		s.RegisterHTTPHandler(conf.MetricsPort, "/stats", http.HandlerFunc(s.handleStats))
	}

	return s, nil
}

// Start runs the underlying Watermill router until the provided context is
// cancelled. HTTP endpoints shut down with it.
func (s *Service) Start(ctx context.Context) error {
	s.startHTTPServers(ctx)
	return routerRun(s.router, ctx)
}

// Running is closed once the router has started its handlers.
func (s *Service) Running() chan struct{} {
	return s.router.Running()
}

// Close stops the router and the transport.
func (s *Service) Close() error {
	var errs []error
	if s.router != nil {
		errs = append(errs, s.router.Close())
	}
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.subscriber != nil && any(s.subscriber) != any(s.publisher) {
		errs = append(errs, s.subscriber.Close())
	}
	return errors.Join(errs...)
}

// Correlator exposes the correlator driven by the service.
func (s *Service) Correlator() *correlator.Correlator { return s.correlator }

// Metrics exposes the correlator metrics.
func (s *Service) Metrics() *CorrelatorMetrics { return s.metrics }

// Capabilities reports what the configured transport supports.
func (s *Service) Capabilities() transportpkg.Capabilities { return s.capabilities }

// Subscriber exposes the transport subscriber, for example to read records
// back on the in-memory channel transport.
func (s *Service) Subscriber() message.Subscriber { return s.subscriber }

func (s *Service) registerCorrelatorHandler() error {
	handler, err := NewCorrelatorHandler(s.correlator, s.codec, s.Logger.With(loggingpkg.LogFields{"handler": CorrelatorHandlerName}))
	if err != nil {
		return err
	}
	handler.fits = s.capabilities.Fits
	s.router.AddHandler(
		CorrelatorHandlerName,
		s.Conf.EventsTopic,
		s.subscriber,
		s.Conf.RecordsTopic,
		s.publisher,
		handler.Handle,
	)
	return nil
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			return registrationError(reg, err)
		}
	}
	return nil
}

// RegisterHTTPHandler mounts handler on the server for port. Servers start
// with Start.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers(ctx context.Context) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": srv.Addr})
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
}
