package metadata

// Reserved metadata keys set on record messages.
const (
	KeyCorrelationID = "correlation_id"
	KeyEventSchema   = "event_message_schema"

	KeyService    = "wormhole_service"
	KeyDirection  = "wormhole_direction"
	KeyThreadID   = "wormhole_thread_id"
	KeyRecordKind = "wormhole_record_kind"
	KeyEncoding   = "wormhole_encoding"

	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"
)

// RecordSchema is the KeyEventSchema value carried by record messages.
const RecordSchema = "wormhole.Record"

// EventSchema is the KeyEventSchema value carried by hook event messages.
const EventSchema = "wormhole.Event"
