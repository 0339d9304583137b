package bplist17

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null(), `null`},
		{"bool", Bool(true), `true`},
		{"negative int", Int(-7), `-7`},
		{"uint", UInt(math.MaxUint64), `18446744073709551615`},
		{"float keeps single precision", Float(0.1), `0.1`},
		{"double", Double(2.25), `2.25`},
		{"nan", Double(math.NaN()), `"NaN"`},
		{"negative infinity", Float(float32(math.Inf(-1))), `"-Infinity"`},
		{"data as hex", Data([]byte{0x00, 0xFF}), `"00ff"`},
		{"string escaping", ASCIIString(`a"b`), `"a\"b"`},
		{"array", Array(Int(1), ASCIIString("x")), `[1,"x"]`},
		{"empty array", Array(), `[]`},
		{"dict keeps order", Dict(Entry("z", Int(1)), Entry("a", Int(2))), `{"z":1,"a":2}`},
		{"dict with integer key", Dict(Pair{Key: Int(3), Value: Null()}), `{"3":null}`},
		{"typed", Typed(Array(Typed(Bool(false)))), `{"value":[{"value":false}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.in.MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestDuplicateDictKeysKeepFirstPosition(t *testing.T) {
	b := newDoc()
	at := b.open(tagDict)
	b.ascii("k").int8(1)
	b.ascii("j").int8(2)
	b.ascii("k").int8(3)
	v, err := Decode(b.close(at).bytes(), false)
	require.NoError(t, err)

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"k":3,"j":2}`, string(out))
}
