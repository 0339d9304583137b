package correlator

import (
	"encoding/base64"
	"encoding/binary"
	"sync"
)

// doc helpers build small documents byte by byte.

type docBuilder struct {
	buf []byte
}

func newDoc() *docBuilder {
	return &docBuilder{buf: []byte("bplist17")}
}

func (b *docBuilder) raw(p ...byte) *docBuilder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *docBuilder) ascii(s string) *docBuilder {
	if len(s) < 15 {
		return b.raw(append([]byte{0x70 | byte(len(s))}, s...)...)
	}
	return b.raw(append([]byte{0x7F, 0x11, byte(len(s))}, s...)...)
}

func (b *docBuilder) int8(v int8) *docBuilder {
	return b.raw(0x11, byte(v))
}

func (b *docBuilder) open(tag byte) int {
	b.buf = append(b.buf, tag)
	at := len(b.buf)
	b.buf = append(b.buf, make([]byte, 8)...)
	return at
}

func (b *docBuilder) close(at int) *docBuilder {
	binary.LittleEndian.PutUint64(b.buf[at:], uint64(len(b.buf)-1))
	return b
}

func (b *docBuilder) base64() string {
	return base64.StdEncoding.EncodeToString(b.buf)
}

// singleEntryDict encodes {key: value}.
func singleEntryDict(key string, value int8) *docBuilder {
	b := newDoc()
	at := b.open(0xD0)
	b.ascii(key).int8(value)
	return b.close(at)
}

// unevenArchive is an NSDictionary keyed archive whose key and object arrays
// differ in length, so only the typed decode succeeds.
func unevenArchive() *docBuilder {
	b := newDoc()
	d := b.open(0xD0)
	b.ascii("$class").ascii("NSDictionary")
	b.ascii("NS.keys")
	k := b.open(0xA0)
	b.ascii("a").ascii("b")
	b.close(k)
	b.ascii("NS.objects")
	o := b.open(0xA0)
	b.int8(1)
	b.close(o)
	return b.close(d)
}

type recordingMetrics struct {
	mu          sync.Mutex
	events      map[EventKind]int
	noise       map[string]int
	records     map[RecordKind]int
	overwrites  int
	evictions   map[EvictReason]int
	roots       map[RootOutcome]int
	pendingSize int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		events:    map[EventKind]int{},
		noise:     map[string]int{},
		records:   map[RecordKind]int{},
		evictions: map[EvictReason]int{},
		roots:     map[RootOutcome]int{},
	}
}

func (m *recordingMetrics) EventObserved(kind EventKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[kind]++
}

func (m *recordingMetrics) NoiseDropped(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noise[pattern]++
}

func (m *recordingMetrics) RecordEmitted(kind RecordKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[kind]++
}

func (m *recordingMetrics) PendingOverwritten() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overwrites++
}

func (m *recordingMetrics) PendingEvicted(reason EvictReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictions[reason]++
}

func (m *recordingMetrics) RootField(outcome RootOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roots[outcome]++
}

func (m *recordingMetrics) PendingSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingSize = n
}

func (m *recordingMetrics) evicted(reason EvictReason) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions[reason]
}
