package runtime

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/drblury/wormhole/internal/runtime/cborcodec"
	configpkg "github.com/drblury/wormhole/internal/runtime/config"
	"github.com/drblury/wormhole/internal/runtime/correlator"
	errspkg "github.com/drblury/wormhole/internal/runtime/errors"
	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
)

// RecordCodec turns records into message payloads and back.
type RecordCodec interface {
	Name() string
	ContentType() string
	Encode(rec *correlator.Record) ([]byte, error)
	Decode(payload []byte) (*correlator.Record, error)
}

// NewRecordCodec returns the codec for a RecordEncoding value. An empty
// name selects JSON.
func NewRecordCodec(encoding string) (RecordCodec, error) {
	switch strings.ToLower(encoding) {
	case "", configpkg.EncodingJSON:
		return jsonRecordCodec{}, nil
	case configpkg.EncodingCBOR:
		return cborRecordCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errspkg.ErrUnknownEncoding, encoding)
	}
}

type jsonRecordCodec struct{}

func (jsonRecordCodec) Name() string        { return configpkg.EncodingJSON }
func (jsonRecordCodec) ContentType() string { return "application/json" }

func (jsonRecordCodec) Encode(rec *correlator.Record) ([]byte, error) {
	return jsoncodec.Marshal(rec)
}

func (jsonRecordCodec) Decode(payload []byte) (*correlator.Record, error) {
	var rec correlator.Record
	if err := jsoncodec.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// cborRecord mirrors correlator.Record with the JSON subtrees lifted into
// native values, so consumers get CBOR maps instead of embedded JSON text.
type cborRecord struct {
	ID         string    `cbor:"id"`
	Kind       string    `cbor:"kind"`
	Service    string    `cbor:"service"`
	Direction  string    `cbor:"direction"`
	Symbol     string    `cbor:"symbol"`
	ThreadID   int64     `cbor:"thread_id"`
	Payload    any       `cbor:"payload"`
	Response   any       `cbor:"response,omitempty"`
	Data       any       `cbor:"data,omitempty"`
	ObservedAt time.Time `cbor:"observed_at"`
}

type cborRecordCodec struct{}

func (cborRecordCodec) Name() string        { return configpkg.EncodingCBOR }
func (cborRecordCodec) ContentType() string { return "application/cbor" }

func (cborRecordCodec) Encode(rec *correlator.Record) ([]byte, error) {
	wire := cborRecord{
		ID:         rec.ID,
		Kind:       string(rec.Kind),
		Service:    rec.Service,
		Direction:  string(rec.Direction),
		Symbol:     rec.Symbol,
		ThreadID:   rec.ThreadID,
		ObservedAt: rec.ObservedAt,
	}
	var err error
	if wire.Payload, err = fromJSON(rec.Payload); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	if wire.Response, err = fromJSON(rec.Response); err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	if wire.Data, err = fromJSON(rec.Data); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return cborcodec.Marshal(wire)
}

// Decode restores a record. A response or data value that was JSON null
// comes back absent.
func (cborRecordCodec) Decode(payload []byte) (*correlator.Record, error) {
	var wire cborRecord
	if err := cborcodec.Unmarshal(payload, &wire); err != nil {
		return nil, err
	}
	rec := &correlator.Record{
		ID:         wire.ID,
		Kind:       correlator.RecordKind(wire.Kind),
		Service:    wire.Service,
		Direction:  correlator.Direction(wire.Direction),
		Symbol:     wire.Symbol,
		ThreadID:   wire.ThreadID,
		ObservedAt: wire.ObservedAt,
	}
	var err error
	if rec.Payload, err = toJSON(wire.Payload); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	if rec.Payload == nil {
		rec.Payload = json.RawMessage("null")
	}
	if rec.Response, err = toJSON(wire.Response); err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	if rec.Data, err = toJSON(wire.Data); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return rec, nil
}

func fromJSON(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tree any
	if err := jsoncodec.UnmarshalNumbers(raw, &tree); err != nil {
		return nil, err
	}
	return liftNumbers(tree), nil
}

// liftNumbers replaces json.Number with the narrowest exact Go number.
// Integers beyond 64 bits become big.Int so CBOR carries them as bignums.
func liftNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = liftNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = liftNumbers(item)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if n, ok := new(big.Int).SetString(string(t), 10); ok {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	default:
		return v
	}
}

func toJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return jsoncodec.Marshal(lowerNumbers(v))
}

func lowerNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = lowerNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = lowerNumbers(item)
		}
		return t
	case *big.Int:
		return json.Number(t.String())
	default:
		return v
	}
}
