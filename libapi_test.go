package wormhole

import (
	"context"
	"errors"
	"testing"
)

func TestServiceExportsPropagateErrors(t *testing.T) {
	if _, err := NewService(nil, NewDiscardLogger(), context.Background(), ServiceDependencies{}); !errors.Is(err, ErrConfigRequired) {
		t.Fatalf("expected config required error, got %v", err)
	}

	if err := PublishEvent(context.Background(), nil, "events", Event{Symbol: "s"}, nil); !errors.Is(err, ErrPublisherRequired) {
		t.Fatalf("expected publisher required error, got %v", err)
	}
}

func TestCorrelatorExports(t *testing.T) {
	c := NewCorrelator(CorrelatorOptions{})
	if _, ok := c.Observe(Event{Symbol: "xpc_connection_send_message_with_reply", Service: "com.example", ThreadID: 1, Args: []string{`{"a":1}`}}); ok {
		t.Fatal("asynchronous call must wait for its reply")
	}
	rec, ok := c.Observe(Event{Symbol: "reply-callback", ThreadID: 1, Args: []string{`{"b":2}`}})
	if !ok || rec == nil {
		t.Fatal("expected reply to complete the call")
	}
	if rec.Kind != RecordCompleted {
		t.Fatalf("expected completed record, got %q", rec.Kind)
	}
	if _, err := ULIDTime(rec.ID); err != nil {
		t.Fatalf("record id is not a ULID: %v", err)
	}
	if Classify("xpc_connection_send_message_with_reply_sync") != KindSyncCall {
		t.Fatal("expected _sync symbols to classify as synchronous calls")
	}
}

func TestDecodeDocumentExport(t *testing.T) {
	doc := []byte("bplist17\x72hi")
	if !HasMagic(doc) {
		t.Fatal("expected magic to be detected")
	}
	v, err := DecodeDocument(doc, DecodeOptions{})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `"hi"` {
		t.Fatalf("expected \"hi\", got %s", out)
	}

	if _, err := DecodeDocument([]byte("bplist00"), DecodeOptions{}); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestLoggerExports(t *testing.T) {
	logger := NewEntryServiceLogger(&stubEntry{})
	logger.Info("boot", LogFields{"component": "test"})
}

func TestEncodingExportAliases(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	if _, err := Marshal(payload); err != nil {
		t.Fatalf("marshal alias failed: %v", err)
	}
	if _, err := MarshalIndent(payload, "", "  "); err != nil {
		t.Fatalf("marshal indent alias failed: %v", err)
	}
	if err := Unmarshal([]byte(`{"hello":"world"}`), &payload); err != nil {
		t.Fatalf("unmarshal alias failed: %v", err)
	}

	b, err := MarshalCBOR(payload)
	if err != nil {
		t.Fatalf("cbor marshal alias failed: %v", err)
	}
	decoded := map[string]string{}
	if err := UnmarshalCBOR(b, &decoded); err != nil {
		t.Fatalf("cbor unmarshal alias failed: %v", err)
	}
	if decoded["hello"] != "world" {
		t.Fatalf("unexpected cbor round trip: %#v", decoded)
	}
}

func TestRecordCodecExport(t *testing.T) {
	codec, err := NewRecordCodec("cbor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codec.ContentType() != "application/cbor" {
		t.Fatalf("unexpected content type %q", codec.ContentType())
	}
	if _, err := NewRecordCodec("xml"); !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("expected unknown encoding error, got %v", err)
	}
}

func TestMetadataExport(t *testing.T) {
	md := NewMetadata(MetadataKeyService, "com.example")
	if md[MetadataKeyService] != "com.example" {
		t.Fatalf("expected metadata to contain service, got %#v", md)
	}
}

func TestTransportExports(t *testing.T) {
	if !DefaultTransportRegistry.Has("channel") {
		t.Fatal("expected the channel transport to be registered")
	}
	if !GetCapabilities("kafka").SupportsPartitioning {
		t.Fatal("expected kafka to support partitioning")
	}
}

type stubEntry struct {
	fields LogFields
	err    error
}

func (s *stubEntry) Error(args ...any) {}
func (s *stubEntry) Info(args ...any)  {}
func (s *stubEntry) Debug(args ...any) {}
func (s *stubEntry) Trace(args ...any) {}

func (s *stubEntry) WithError(err error) *stubEntry {
	clone := *s
	clone.err = err
	return &clone
}

func (s *stubEntry) WithField(key string, value any) *stubEntry {
	clone := *s
	if clone.fields == nil {
		clone.fields = make(LogFields)
	}
	clone.fields[key] = value
	return &clone
}
