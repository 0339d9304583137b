// Package http is the HTTP transport. Hook agents POST events to
// <server address>/<topic>; records are POSTed to <publisher URL>/<topic>.
package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/wormhole/transport"
)

// TransportName is the PubSubSystem value for this transport.
const TransportName = "http"

// PublisherFactory creates the publisher. Tests may replace it.
var PublisherFactory = func(config http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(config, logger)
}

// SubscriberFactory creates the subscriber. Tests may replace it.
var SubscriberFactory = func(addr string, config http.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return http.NewSubscriber(addr, config, logger)
}

func init() {
	Register()
}

// Register adds the transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.HTTPCapabilities)
}

// PublishURL joins base and topic with exactly one slash.
func PublishURL(base, topic string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(topic, "/")
}

// Build creates the publisher and a subscriber that starts its server on the
// first Subscribe.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	if cfg == nil || cfg.GetHTTPServerAddress() == "" {
		return transport.Transport{}, errors.New("http server address is required")
	}
	publisherURL := cfg.GetHTTPPublisherURL()

	publisher, err := PublisherFactory(
		http.PublisherConfig{
			MarshalMessageFunc: func(topic string, msg *message.Message) (*nethttp.Request, error) {
				if publisherURL == "" {
					return nil, errors.New("http publisher URL is not configured")
				}
				return http.DefaultMarshalMessageFunc(PublishURL(publisherURL, topic), msg)
			},
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		cfg.GetHTTPServerAddress(),
		http.SubscriberConfig{
			UnmarshalMessageFunc: http.DefaultUnmarshalMessageFunc,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}
	if hs, ok := subscriber.(*http.Subscriber); ok {
		subscriber = &servingSubscriber{Subscriber: hs, logger: logger}
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// Capabilities returns HTTPCapabilities.
func Capabilities() transport.Capabilities {
	return transport.HTTPCapabilities
}

// servingSubscriber starts the HTTP server once a route exists.
type servingSubscriber struct {
	*http.Subscriber
	logger watermill.LoggerAdapter
	once   sync.Once
}

func (s *servingSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := s.Subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	s.once.Do(func() {
		go func() {
			if err := s.StartHTTPServer(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				s.logger.Error("HTTP subscriber server stopped", err, nil)
			}
		}()
	})
	return ch, nil
}
