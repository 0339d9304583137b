package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
)

var (
	defaultConfig = sonic.ConfigStd

	// numberConfig keeps numbers as json.Number so 64-bit integers coming
	// off the wire survive a decode and re-encode untouched.
	numberConfig = sonic.Config{
		EscapeHTML:       true,
		SortMapKeys:      true,
		CompactMarshaler: true,
		CopyString:       true,
		ValidateString:   true,
		UseNumber:        true,
	}.Froze()
)

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// UnmarshalNumbers is Unmarshal with numbers decoded into json.Number
// instead of float64 when the target is an interface.
func UnmarshalNumbers(data []byte, v any) error {
	return numberConfig.Unmarshal(data, v)
}

// Valid reports whether data is a single well-formed JSON value.
func Valid(data []byte) bool {
	return defaultConfig.Valid(data)
}

func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}

func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}

// Parse loads data into a sonic AST. Objects keep their member order and
// numbers keep their original text, so an edited tree re-encodes without
// reordering keys or rounding numbers.
func Parse(data []byte) (ast.Node, error) {
	root, err := sonic.Get(data)
	if err != nil {
		return ast.Node{}, err
	}
	if err := root.LoadAll(); err != nil {
		return ast.Node{}, err
	}
	return root, nil
}

// NewStreamDecoder returns a decoder for a stream of concatenated JSON
// values (NDJSON) that keeps numbers as json.Number.
func NewStreamDecoder(r io.Reader) sonic.Decoder {
	return numberConfig.NewDecoder(r)
}
