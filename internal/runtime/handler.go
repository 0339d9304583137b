package runtime

import (
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/wormhole/internal/runtime/correlator"
	errspkg "github.com/drblury/wormhole/internal/runtime/errors"
	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/wormhole/internal/runtime/logging"
	metadatapkg "github.com/drblury/wormhole/internal/runtime/metadata"
)

// CorrelatorHandlerName is the router handler name of the correlator.
const CorrelatorHandlerName = "wormhole-correlator"

// propagatedKeys are copied from the event message onto its record.
var propagatedKeys = []string{
	metadatapkg.KeyCorrelationID,
	metadatapkg.KeyTraceID,
	metadatapkg.KeySpanID,
}

// CorrelatorHandler feeds hook event messages through a Correlator and turns
// the records it completes into outgoing messages.
type CorrelatorHandler struct {
	correlator *correlator.Correlator
	codec      RecordCodec
	logger     loggingpkg.ServiceLogger

	// fits reports whether an encoded record is within the transport's
	// message size limit. Nil accepts everything.
	fits func(size int) bool
}

// NewCorrelatorHandler wires c to codec. A nil codec selects JSON.
func NewCorrelatorHandler(c *correlator.Correlator, codec RecordCodec, logger loggingpkg.ServiceLogger) (*CorrelatorHandler, error) {
	if c == nil {
		return nil, errspkg.ErrCorrelatorRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if codec == nil {
		codec = jsonRecordCodec{}
	}
	return &CorrelatorHandler{correlator: c, codec: codec, logger: logger}, nil
}

// Handle is a message.HandlerFunc. Payloads that are not events are
// unprocessable; events that complete nothing produce no messages.
func (h *CorrelatorHandler) Handle(msg *message.Message) ([]*message.Message, error) {
	ev, err := DecodeEvent(msg.Payload)
	if err != nil {
		return nil, &errspkg.UnprocessableEventError{MessageUUID: msg.UUID, Err: err}
	}

	rec, ok := h.correlator.Observe(ev)
	if !ok {
		return nil, nil
	}

	out, err := h.recordMessage(msg, rec)
	if err != nil {
		return nil, err
	}
	if h.fits != nil && !h.fits(len(out.Payload)) {
		h.logger.Info("Record exceeds the transport message size limit", loggingpkg.LogFields{
			"record_id": rec.ID,
			"size":      len(out.Payload),
		})
	}
	h.logger.Trace("Emitting record", loggingpkg.LogFields{
		"record_id": rec.ID,
		"kind":      string(rec.Kind),
		"thread_id": rec.ThreadID,
	})
	return []*message.Message{out}, nil
}

func (h *CorrelatorHandler) recordMessage(in *message.Message, rec *correlator.Record) (*message.Message, error) {
	payload, err := h.codec.Encode(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}

	out := message.NewMessage(rec.ID, payload)
	md := RecordMetadata(rec, h.codec.Name()).Merge(metadatapkg.Pick(in.Metadata, propagatedKeys...))
	out.Metadata = metadatapkg.ToWatermill(md.WithoutEmpty())
	out.SetContext(in.Context())
	return out, nil
}

// RecordMetadata returns the headers carried by a record message.
func RecordMetadata(rec *correlator.Record, encoding string) metadatapkg.Metadata {
	return metadatapkg.New(
		metadatapkg.KeyEventSchema, metadatapkg.RecordSchema,
		metadatapkg.KeyService, rec.Service,
		metadatapkg.KeyDirection, string(rec.Direction),
		metadatapkg.KeyThreadID, strconv.FormatInt(rec.ThreadID, 10),
		metadatapkg.KeyRecordKind, string(rec.Kind),
		metadatapkg.KeyEncoding, encoding,
	)
}

// DecodeEvent parses and validates one hook event payload.
func DecodeEvent(payload []byte) (correlator.Event, error) {
	var ev correlator.Event
	if len(payload) == 0 {
		return ev, errspkg.ErrEventPayloadRequired
	}
	if err := jsoncodec.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", errspkg.ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return ev, err
	}
	return ev, nil
}
