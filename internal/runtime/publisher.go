package runtime

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/wormhole/internal/runtime/correlator"
	errspkg "github.com/drblury/wormhole/internal/runtime/errors"
	idspkg "github.com/drblury/wormhole/internal/runtime/ids"
	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/wormhole/internal/runtime/metadata"
)

// Producer puts hook events onto a transport.
type Producer interface {
	PublishEvent(ctx context.Context, ev correlator.Event, metadata metadatapkg.Metadata) error
}

// NewEventMessage converts ev into a Watermill message tagged with the event
// schema and its thread id, which partitioned transports key on.
func NewEventMessage(ev correlator.Event, metadata metadatapkg.Metadata) (*message.Message, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	payload, err := jsoncodec.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(idspkg.CreateULID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(metadata)
	msg.Metadata.Set(metadatapkg.KeyEventSchema, metadatapkg.EventSchema)
	msg.Metadata.Set(metadatapkg.KeyThreadID, strconv.FormatInt(ev.ThreadID, 10))
	if ev.Service != "" {
		msg.Metadata.Set(metadatapkg.KeyService, ev.Service)
	}
	return msg, nil
}

// PublishEvent marshals ev and publishes it to topic.
func PublishEvent(ctx context.Context, publisher message.Publisher, topic string, ev correlator.Event, metadata metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	msg, err := NewEventMessage(ev, metadata)
	if err != nil {
		return err
	}

	if ctx != nil {
		msg.SetContext(ctx)
	}

	return publisher.Publish(topic, msg)
}

// PublishEvent sends ev to the configured events topic.
func (s *Service) PublishEvent(ctx context.Context, ev correlator.Event, metadata metadatapkg.Metadata) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	return PublishEvent(ctx, s.publisher, s.Conf.EventsTopic, ev, metadata)
}
