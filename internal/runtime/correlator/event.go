package correlator

import (
	"fmt"
	"strings"

	errs "github.com/drblury/wormhole/internal/runtime/errors"
)

// Event is one intercepted call as reported by the instrumentation hook.
type Event struct {
	Symbol   string   `json:"symbol"`
	Service  string   `json:"service"`
	ThreadID int64    `json:"thread_id"`
	Args     []string `json:"args,omitempty"`
	// PayloadBytes is the raw message body, base64 on the wire.
	PayloadBytes []byte `json:"payload_bytes,omitempty"`
	// Ret is the return value of synchronous calls.
	Ret string `json:"ret,omitempty"`
	// Timestamp is the hook time in Unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Validate reports whether the event carries enough to be classified.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", errs.ErrInvalidEvent)
	}
	if e.ThreadID < 0 {
		return fmt.Errorf("%w: negative thread id %d", errs.ErrInvalidEvent, e.ThreadID)
	}
	return nil
}

// EventKind is the role a symbol plays in a request/reply exchange.
type EventKind int

const (
	// KindCall is a fire-and-forget send or notification.
	KindCall EventKind = iota
	// KindAsyncCall expects a reply delivered later on the same thread.
	KindAsyncCall
	// KindSyncCall blocks and carries its reply as the return value.
	KindSyncCall
	// KindReply is a callback or event-handler delivery.
	KindReply
)

func (k EventKind) String() string {
	switch k {
	case KindAsyncCall:
		return "async_call"
	case KindSyncCall:
		return "sync_call"
	case KindReply:
		return "reply"
	default:
		return "call"
	}
}

// Classify derives the event kind from the hooked symbol name. Rules are
// checked in order and the first match wins, so
// xpc_connection_send_message_with_reply_sync is a synchronous call.
func Classify(symbol string) EventKind {
	switch {
	case strings.Contains(symbol, "-callback"), strings.Contains(symbol, "call_event_handler"):
		return KindReply
	case strings.Contains(symbol, "_sync"):
		return KindSyncCall
	case strings.Contains(symbol, "with_reply"):
		return KindAsyncCall
	default:
		return KindCall
	}
}

// Direction tells which side of the connection produced a record.
type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
)
