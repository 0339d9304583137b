package correlator

import (
	"encoding/json"
	"time"
)

// RecordKind says how a record came to be emitted.
type RecordKind string

const (
	// RecordCompleted pairs an asynchronous call with its reply.
	RecordCompleted RecordKind = "completed"
	// RecordSync is a synchronous call with its return value.
	RecordSync RecordKind = "sync"
	// RecordCall is a call that expects no reply.
	RecordCall RecordKind = "call"
	// RecordOrphan is a reply that matched no pending call.
	RecordOrphan RecordKind = "orphan"
)

// Record is the correlated output handed to the sink.
type Record struct {
	ID        string     `json:"id"`
	Kind      RecordKind `json:"kind"`
	Service   string     `json:"service"`
	Direction Direction  `json:"direction"`
	Symbol    string     `json:"symbol"`
	ThreadID  int64      `json:"thread_id"`
	// Payload is the normalized call payload, or the reply payload for
	// orphans.
	Payload  json.RawMessage `json:"payload"`
	Response json.RawMessage `json:"response,omitempty"`
	// Data is the decoded payload_bytes document, or its hex form.
	Data       json.RawMessage `json:"data,omitempty"`
	ObservedAt time.Time       `json:"observed_at"`
}

// HasResponse reports whether a response is attached.
func (r *Record) HasResponse() bool {
	return len(r.Response) > 0
}
