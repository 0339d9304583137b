package bplist17

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"

	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
)

// MarshalJSON renders the value tree as JSON. Dicts keep insertion order,
// data renders as a hex string, and type-info wrappers render as
// {"value": ...}. Non-finite floats have no JSON form and render as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
	case KindUInt:
		buf.WriteString(strconv.FormatUint(v.UInt, 10))
	case KindFloat:
		appendFloat(buf, v.Float, 32)
	case KindDouble:
		appendFloat(buf, v.Float, 64)
	case KindData:
		return appendString(buf, hex.EncodeToString(v.Bytes))
	case KindASCIIString, KindUTF16String:
		return appendString(buf, v.Str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindDict:
		buf.WriteByte('{')
		for i, p := range v.Pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendString(buf, p.Key.keyText()); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := p.Value.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindTyped:
		buf.WriteString(`{"value":`)
		inner := Null()
		if v.Inner != nil {
			inner = *v.Inner
		}
		if err := inner.appendJSON(buf); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return appendString(buf, v.Kind.String())
	}
	return nil
}

func appendFloat(buf *bytes.Buffer, f float64, bits int) {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		buf.WriteString(`"Infinity"`)
	case math.IsInf(f, -1):
		buf.WriteString(`"-Infinity"`)
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	}
}

func appendString(buf *bytes.Buffer, s string) error {
	b, err := jsoncodec.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
