package correlator

// RootOutcome classifies what happened to one "root" field.
type RootOutcome string

const (
	RootDecoded       RootOutcome = "decoded"
	RootTypedFallback RootOutcome = "typed_fallback"
	RootNotDocument   RootOutcome = "not_document"
	RootBadBase64     RootOutcome = "bad_base64"
	RootFailed        RootOutcome = "failed"
)

// EvictReason says why a pending call left the table without a reply.
type EvictReason string

const (
	EvictCapacity EvictReason = "capacity"
	EvictExpired  EvictReason = "expired"
)

// Recorder receives correlator counters. Implementations must be safe for
// concurrent use; eviction callbacks may run on a background goroutine.
type Recorder interface {
	EventObserved(kind EventKind)
	NoiseDropped(pattern string)
	RecordEmitted(kind RecordKind)
	PendingOverwritten()
	PendingEvicted(reason EvictReason)
	RootField(outcome RootOutcome)
	PendingSize(n int)
}

type nopRecorder struct{}

func (nopRecorder) EventObserved(EventKind)    {}
func (nopRecorder) NoiseDropped(string)        {}
func (nopRecorder) RecordEmitted(RecordKind)   {}
func (nopRecorder) PendingOverwritten()        {}
func (nopRecorder) PendingEvicted(EvictReason) {}
func (nopRecorder) RootField(RootOutcome)      {}
func (nopRecorder) PendingSize(int)            {}
