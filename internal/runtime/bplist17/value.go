package bplist17

import (
	"encoding/hex"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUInt
	KindFloat
	KindDouble
	KindData
	KindUTF16String
	KindASCIIString
	KindArray
	KindDict
	// KindTyped is the single-field wrapper produced in type-info mode.
	KindTyped
)

var kindNames = map[Kind]string{
	KindNull:        "null",
	KindBool:        "bool",
	KindInt:         "int",
	KindUInt:        "uint",
	KindFloat:       "float",
	KindDouble:      "double",
	KindData:        "data",
	KindUTF16String: "string_utf16le",
	KindASCIIString: "string_ascii",
	KindArray:       "array",
	KindDict:        "dict",
	KindTyped:       "typed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded node of a BPv17 object graph. Only the fields relevant
// to Kind are populated.
type Value struct {
	Kind Kind

	Bool  bool
	Int   int64
	UInt  uint64
	Float float64 // holds both KindFloat and KindDouble
	Bytes []byte
	Str   string

	Items []Value
	Pairs []Pair

	// Inner is the wrapped node of a KindTyped value.
	Inner *Value
}

// Pair is one dict entry. Dicts keep insertion order.
type Pair struct {
	Key   Value
	Value Value
}

func Null() Value                    { return Value{Kind: KindNull} }
func Bool(b bool) Value              { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value              { return Value{Kind: KindInt, Int: i} }
func UInt(u uint64) Value            { return Value{Kind: KindUInt, UInt: u} }
func Float(f float32) Value          { return Value{Kind: KindFloat, Float: float64(f)} }
func Double(f float64) Value         { return Value{Kind: KindDouble, Float: f} }
func Data(b []byte) Value            { return Value{Kind: KindData, Bytes: b} }
func UTF16String(s string) Value     { return Value{Kind: KindUTF16String, Str: s} }
func ASCIIString(s string) Value     { return Value{Kind: KindASCIIString, Str: s} }
func Array(items ...Value) Value     { return Value{Kind: KindArray, Items: items} }
func Typed(inner Value) Value        { return Value{Kind: KindTyped, Inner: &inner} }
func Dict(pairs ...Pair) Value       { return Value{Kind: KindDict, Pairs: pairs} }
func Entry(key string, v Value) Pair { return Pair{Key: ASCIIString(key), Value: v} }

// IsString reports whether v holds either string variant.
func (v Value) IsString() bool {
	return v.Kind == KindASCIIString || v.Kind == KindUTF16String
}

// Unwrap strips any type-info wrappers.
func (v Value) Unwrap() Value {
	for v.Kind == KindTyped && v.Inner != nil {
		v = *v.Inner
	}
	return v
}

// Lookup returns the value stored under key in a dict.
func (v Value) Lookup(key string) (Value, bool) {
	if v.Kind != KindDict {
		return Value{}, false
	}
	for _, p := range v.Pairs {
		if p.Key.IsString() && p.Key.Str == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of items of an array or pairs of a dict.
func (v Value) Len() int {
	switch v.Kind {
	case KindArray:
		return len(v.Items)
	case KindDict:
		return len(v.Pairs)
	}
	return 0
}

// set inserts or replaces a dict entry, keeping the original position of a
// key that is already present.
func (v *Value) set(key, val Value) {
	text := key.keyText()
	for i := range v.Pairs {
		if v.Pairs[i].Key.keyText() == text {
			v.Pairs[i].Value = val
			return
		}
	}
	v.Pairs = append(v.Pairs, Pair{Key: key, Value: val})
}

// keyText is the textual form of a dict key used both for equality and for
// JSON object keys.
func (v Value) keyText() string {
	switch v.Kind {
	case KindASCIIString, KindUTF16String:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindUInt:
		return strconv.FormatUint(v.UInt, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNull:
		return "null"
	case KindData:
		return hex.EncodeToString(v.Bytes)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return v.Kind.String()
	}
	return string(b)
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<" + v.Kind.String() + ">"
	}
	return string(b)
}
