package bplist17

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf16"
)

const (
	// Magic is the 6-byte document prefix shared by every binary plist.
	Magic = "bplist"
	// Version17 is the version marker this package decodes.
	Version17 = "17"
	// Version00 is the legacy variant, left undecoded.
	Version00 = "00"

	// HeaderSize is also the address of the top-level object.
	HeaderSize = 8

	// DefaultMaxDepth bounds recursion through containers, references and
	// nested documents.
	DefaultMaxDepth = 512

	// DefaultExpansion is how many decoded nodes each input byte may yield
	// when Options.MaxNodes is unset. A document without shared references
	// yields at most one node per byte.
	DefaultExpansion = 64
	// minNodeBudget keeps the default budget usable for tiny buffers.
	minNodeBudget = 4096
)

// Tag classes (high nibble) and literal tags.
const (
	tagInt       byte = 0x10
	tagFloat     byte = 0x22
	tagDouble    byte = 0x23
	tagData      byte = 0x40
	tagUTF16     byte = 0x60
	tagASCII     byte = 0x70
	tagReference byte = 0x80
	tagArray     byte = 0xA0
	tagTrue      byte = 0xB0
	tagFalse     byte = 0xC0
	tagDict      byte = 0xD0
	tagNull      byte = 0xE0
	tagUInt      byte = 0xF0

	dynamicLength byte = 0x0F
	endAddrSize        = 8
)

const (
	classKey   = "$class"
	keysKey    = "NS.keys"
	objectsKey = "NS.objects"
)

// Options tunes a decode call.
type Options struct {
	// TypeInfo wraps every decoded node in a KindTyped value and disables
	// keyed-archive flattening.
	TypeInfo bool
	// MaxDepth overrides DefaultMaxDepth when positive.
	MaxDepth int
	// MaxNodes caps the nodes one decode may produce, counting every visit
	// through a reference. Zero means DefaultExpansion nodes per input byte.
	MaxNodes int
}

// HasMagic reports whether buf starts with the BPv17 magic and version.
func HasMagic(buf []byte) bool {
	return len(buf) >= HeaderSize &&
		string(buf[:len(Magic)]) == Magic &&
		string(buf[len(Magic):HeaderSize]) == Version17
}

// Decode decodes the document in buf. With withTypeInfo set every node is
// wrapped, which is the fallback mode for documents whose keyed archives do
// not flatten.
func Decode(buf []byte, withTypeInfo bool) (Value, error) {
	return DecodeWithOptions(buf, Options{TypeInfo: withTypeInfo})
}

// DecodeWithOptions is Decode with explicit options.
func DecodeWithOptions(buf []byte, opts Options) (Value, error) {
	d := NewDecoder(buf, opts)
	if err := d.checkHeader(); err != nil {
		return Value{}, err
	}
	v, _, err := d.readObjectAt(HeaderSize, opts.TypeInfo, 0)
	return v, err
}

// Decoder reads values out of one immutable buffer. Every read is addressed
// explicitly, so a Decoder holds no cursor and can be reused, but not from
// several goroutines at once.
type Decoder struct {
	buf      []byte
	typed    bool
	maxDepth int
	// nodes is shared with decoders of nested documents.
	nodes *nodeBudget
}

// nodeBudget bounds the total work of one read. References may point at the
// same subtree many times, so depth alone does not bound it.
type nodeBudget struct {
	limit, used int
}

func (b *nodeBudget) take(addr int) error {
	b.used++
	if b.used > b.limit {
		return formatErrorf(addr, "document expands past %d nodes", b.limit)
	}
	return nil
}

// NewDecoder returns a Decoder over buf. The header is not checked, which
// lets callers read objects out of fragments.
func NewDecoder(buf []byte, opts Options) *Decoder {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	limit := opts.MaxNodes
	if limit <= 0 {
		limit = max(len(buf)*DefaultExpansion, minNodeBudget)
	}
	return &Decoder{buf: buf, typed: opts.TypeInfo, maxDepth: depth, nodes: &nodeBudget{limit: limit}}
}

// ReadAt decodes the value whose encoding starts at addr and returns it with
// the number of bytes its own encoding occupies. For a reference token that
// is the size of the token, not of the referenced object.
func (d *Decoder) ReadAt(addr int) (Value, int, error) {
	d.nodes.used = 0
	v, next, err := d.readObjectAt(addr, d.typed, 0)
	if err != nil {
		return Value{}, 0, err
	}
	return v, next - addr, nil
}

func (d *Decoder) checkHeader() error {
	if len(d.buf) < HeaderSize {
		return formatErrorf(0, "buffer of %d bytes is shorter than the header", len(d.buf))
	}
	if string(d.buf[:len(Magic)]) != Magic {
		return formatErrorf(0, "bad magic %q", d.buf[:len(Magic)])
	}
	if version := string(d.buf[len(Magic):HeaderSize]); version != Version17 {
		return formatErrorf(len(Magic), "unsupported version %q", version)
	}
	return nil
}

// readObjectAt decodes the value at addr and returns the address right after
// its encoding.
func (d *Decoder) readObjectAt(addr int, typed bool, depth int) (Value, int, error) {
	if depth > d.maxDepth {
		return Value{}, 0, formatErrorf(addr, "nesting deeper than %d", d.maxDepth)
	}
	if err := d.nodes.take(addr); err != nil {
		return Value{}, 0, err
	}
	tagBytes, err := d.slice(addr, 1)
	if err != nil {
		return Value{}, 0, err
	}
	tag := tagBytes[0]
	high, low := tag&0xF0, tag&0x0F
	pos := addr + 1

	var v Value
	switch {
	case high == tagInt:
		b, err := d.fixedWidth(pos, int(low))
		if err != nil {
			return Value{}, 0, err
		}
		v = Int(signedLE(b))
		pos += len(b)

	case tag == tagFloat:
		b, err := d.slice(pos, 4)
		if err != nil {
			return Value{}, 0, err
		}
		v = Float(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		pos += 4

	case tag == tagDouble:
		b, err := d.slice(pos, 8)
		if err != nil {
			return Value{}, 0, err
		}
		v = Double(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		pos += 8

	case high == tagData:
		size, next, err := d.readDynamicSize(addr, pos, low)
		if err != nil {
			return Value{}, 0, err
		}
		b, err := d.slice(next, size)
		if err != nil {
			return Value{}, 0, err
		}
		pos = next + size
		if v, err = d.data(b, typed, depth); err != nil {
			return Value{}, 0, err
		}

	case high == tagUTF16:
		size, next, err := d.readDynamicSize(addr, pos, low)
		if err != nil {
			return Value{}, 0, err
		}
		if size > math.MaxInt/2 {
			return Value{}, 0, formatErrorf(addr, "string length %d overflows", size)
		}
		b, err := d.slice(next, size*2)
		if err != nil {
			return Value{}, 0, err
		}
		units := make([]uint16, size)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(b[i*2:])
		}
		v = UTF16String(string(utf16.Decode(units)))
		pos = next + size*2

	case high == tagASCII:
		size, next, err := d.readDynamicSize(addr, pos, low)
		if err != nil {
			return Value{}, 0, err
		}
		b, err := d.slice(next, size)
		if err != nil {
			return Value{}, 0, err
		}
		for _, c := range b {
			if c > 0x7F {
				return Value{}, 0, formatErrorf(addr, "non-ascii byte 0x%02x in ascii string", c)
			}
		}
		v = ASCIIString(strings.TrimRight(string(b), "\x00"))
		pos = next + size

	case high == tagReference:
		size, next, err := d.readDynamicSize(addr, pos, low)
		if err != nil {
			return Value{}, 0, err
		}
		b, err := d.fixedWidth(next, size)
		if err != nil {
			return Value{}, 0, err
		}
		target := unsignedLE(b)
		if target >= uint64(len(d.buf)) {
			return Value{}, 0, formatErrorf(addr, "reference to 0x%x outside buffer", target)
		}
		// References are transparent: no wrapper, and the caller resumes
		// right after the token.
		ref, _, err := d.readObjectAt(int(target), typed, depth+1)
		if err != nil {
			return Value{}, 0, err
		}
		return ref, next + size, nil

	case high == tagArray:
		end, next, err := d.endAddress(pos)
		if err != nil {
			return Value{}, 0, err
		}
		pos = next
		items := []Value{}
		for pos <= end {
			item, after, err := d.readObjectAt(pos, typed, depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			items = append(items, item)
			pos = after
		}
		if pos != end+1 {
			return Value{}, 0, formatErrorf(addr, "array ends at 0x%x, declared end 0x%x", pos-1, end)
		}
		v = Array(items...)

	case tag == tagTrue:
		v = Bool(true)

	case tag == tagFalse:
		v = Bool(false)

	case high == tagDict:
		end, next, err := d.endAddress(pos)
		if err != nil {
			return Value{}, 0, err
		}
		pos = next
		dict := Value{Kind: KindDict, Pairs: []Pair{}}
		for pos <= end {
			key, afterKey, err := d.readObjectAt(pos, false, depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			val, afterVal, err := d.readObjectAt(afterKey, typed, depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			dict.set(key, val)
			pos = afterVal
		}
		if pos != end+1 {
			return Value{}, 0, formatErrorf(addr, "dict ends at 0x%x, declared end 0x%x", pos-1, end)
		}
		if !typed {
			if dict, err = flattenKeyedArchive(dict, addr); err != nil {
				return Value{}, 0, err
			}
		}
		v = dict

	case tag == tagNull:
		v = Null()

	case high == tagUInt:
		b, err := d.fixedWidth(pos, int(low))
		if err != nil {
			return Value{}, 0, err
		}
		v = UInt(unsignedBE(b))
		pos += len(b)

	default:
		return Value{}, 0, &UnsupportedTagError{Raw: []byte{tag}, Address: addr}
	}

	if typed {
		v = Typed(v)
	}
	return v, pos, nil
}

// readDynamicSize resolves the length encoded in the low nibble of the tag at
// addr. A nibble of 0xF is followed by an extension byte 0x1n announcing n
// little-endian length bytes.
func (d *Decoder) readDynamicSize(addr, pos int, low byte) (int, int, error) {
	if low != dynamicLength {
		return int(low), pos, nil
	}
	ext, err := d.slice(pos, 1)
	if err != nil {
		return 0, 0, err
	}
	n := int(ext[0] & 0x0F)
	if n == 0 || ext[0]&0xF0 != 0x10 {
		return 0, 0, &UnsupportedTagError{Raw: []byte{d.buf[addr], ext[0]}, Address: addr}
	}
	b, err := d.fixedWidth(pos+1, n)
	if err != nil {
		return 0, 0, err
	}
	size := unsignedLE(b)
	if size > uint64(len(d.buf)) {
		return 0, 0, formatErrorf(addr, "length %d exceeds buffer", size)
	}
	return int(size), pos + 1 + n, nil
}

func (d *Decoder) endAddress(pos int) (int, int, error) {
	b, err := d.slice(pos, endAddrSize)
	if err != nil {
		return 0, 0, err
	}
	end := binary.LittleEndian.Uint64(b)
	if end >= uint64(len(d.buf)) {
		return 0, 0, formatErrorf(pos-1, "end address 0x%x outside buffer", end)
	}
	return int(end), pos + endAddrSize, nil
}

// data decodes an embedded v17 document in place of the raw bytes; anything
// else, legacy v00 documents included, stays opaque.
func (d *Decoder) data(b []byte, typed bool, depth int) (Value, error) {
	if !HasMagic(b) {
		return Data(bytes.Clone(b)), nil
	}
	nested := &Decoder{buf: b, typed: typed, maxDepth: d.maxDepth, nodes: d.nodes}
	v, _, err := nested.readObjectAt(HeaderSize, typed, depth+1)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func (d *Decoder) slice(pos, n int) ([]byte, error) {
	if pos < 0 || n < 0 || pos > len(d.buf) || n > len(d.buf)-pos {
		return nil, formatErrorf(pos, "need %d bytes, %d available", n, max(len(d.buf)-pos, 0))
	}
	return d.buf[pos : pos+n], nil
}

// fixedWidth reads an integer field of n bytes. Widths past 8 bytes do not
// fit a 64-bit value.
func (d *Decoder) fixedWidth(pos, n int) ([]byte, error) {
	if n > 8 {
		return nil, formatErrorf(pos, "integer width %d exceeds 8 bytes", n)
	}
	return d.slice(pos, n)
}

func flattenKeyedArchive(dict Value, addr int) (Value, error) {
	class, ok := dict.Lookup(classKey)
	if !ok || !class.IsString() {
		return dict, nil
	}
	if class.Str != "NSDictionary" && class.Str != "NSMutableDictionary" {
		return dict, nil
	}
	keys, ok := dict.Lookup(keysKey)
	if !ok || keys.Kind != KindArray {
		return Value{}, formatErrorf(addr, "%s without %s array", class.Str, keysKey)
	}
	objects, ok := dict.Lookup(objectsKey)
	if !ok || objects.Kind != KindArray {
		return Value{}, formatErrorf(addr, "%s without %s array", class.Str, objectsKey)
	}
	if len(keys.Items) != len(objects.Items) {
		return Value{}, formatErrorf(addr, "%s has %d keys and %d objects", class.Str, len(keys.Items), len(objects.Items))
	}

	flat := Value{Kind: KindDict, Pairs: make([]Pair, 0, len(keys.Items)+1)}
	flat.set(ASCIIString(classKey), class)
	for i, key := range keys.Items {
		flat.set(key, objects.Items[i])
	}
	return flat, nil
}

func signedLE(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	u := unsignedLE(b)
	shift := uint(64 - 8*len(b))
	return int64(u<<shift) >> shift
}

func unsignedLE(b []byte) uint64 {
	var u uint64
	for i := len(b) - 1; i >= 0; i-- {
		u = u<<8 | uint64(b[i])
	}
	return u
}

func unsignedBE(b []byte) uint64 {
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	return u
}
