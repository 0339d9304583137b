package correlator

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/drblury/wormhole/internal/runtime/bplist17"
	"github.com/drblury/wormhole/internal/runtime/ids"
	"github.com/drblury/wormhole/internal/runtime/logging"
)

// Options configures a Correlator. The zero value is usable: unbounded
// table, no expiry, default noise list, discarded logs.
type Options struct {
	Logger  logging.ServiceLogger
	Metrics Recorder

	// NoiseServices is appended to DefaultNoiseServices unless
	// DisableDefaultNoise is set.
	NoiseServices       []string
	DisableDefaultNoise bool

	// PendingCapacity bounds unresolved calls; the least recently stored
	// one is dropped first. Zero means unbounded.
	PendingCapacity int
	// PendingTTL drops unresolved calls older than this. Zero disables it.
	// Expired calls are swept whenever the correlator is used, so they are
	// reported on the next event or Pending call.
	PendingTTL time.Duration

	// MaxDecodeDepth overrides bplist17.DefaultMaxDepth when positive.
	MaxDecodeDepth int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Correlator pairs asynchronous calls with their replies by thread id. It is
// safe for concurrent use, but records for one thread are only meaningful
// when that thread's events arrive in order.
type Correlator struct {
	mu      sync.Mutex
	pending *pendingTable
	noise   NoiseFilter
	norm    *normalizer
	logger  logging.ServiceLogger
	metrics Recorder
	now     func() time.Time
}

// New builds a Correlator from opts.
func New(opts Options) *Correlator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	depth := opts.MaxDecodeDepth
	if depth <= 0 {
		depth = bplist17.DefaultMaxDepth
	}

	c := &Correlator{
		noise:   NewNoiseFilter(opts.NoiseServices, !opts.DisableDefaultNoise),
		norm:    &normalizer{maxDepth: depth, metrics: metrics, logger: logger},
		logger:  logger,
		metrics: metrics,
		now:     now,
	}
	c.pending = newPendingTable(opts.PendingCapacity, opts.PendingTTL, c.dropped)
	return c
}

// Observe processes one event and returns the record it completes, if any.
// Noise, asynchronous calls still waiting for a reply and invalid events
// return false.
func (c *Correlator) Observe(ev Event) (*Record, bool) {
	if err := ev.Validate(); err != nil {
		c.logger.Debug("Dropping invalid event", logging.LogFields{"error": err.Error()})
		return nil, false
	}
	if pattern, ok := c.noise.Match(ev.Service); ok {
		c.metrics.NoiseDropped(pattern)
		c.logger.Trace("Dropping noise event", logging.LogFields{"service": ev.Service, "pattern": pattern})
		return nil, false
	}

	kind := Classify(ev.Symbol)
	c.metrics.EventObserved(kind)
	observedAt := c.observedAt(ev)

	switch kind {
	case KindReply:
		return c.reply(ev, observedAt), true

	case KindSyncCall:
		rec := c.record(RecordSync, ev, Outbound, c.norm.payload(ev.Args), observedAt)
		if ev.Ret != "" {
			rec.Response = c.norm.argument(ev.Ret)
		}
		c.metrics.RecordEmitted(RecordSync)
		return rec, true

	case KindAsyncCall:
		c.await(ev, observedAt)
		return nil, false

	default:
		rec := c.record(RecordCall, ev, Outbound, c.norm.payload(ev.Args), observedAt)
		c.metrics.RecordEmitted(RecordCall)
		return rec, true
	}
}

// Pending returns the number of calls waiting for a reply.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.len()
}

// NoisePatterns returns the active service denylist.
func (c *Correlator) NoisePatterns() []string {
	return c.noise.Patterns()
}

func (c *Correlator) await(ev Event, observedAt time.Time) {
	e := &entry{
		service:   ev.Service,
		symbol:    ev.Symbol,
		threadID:  ev.ThreadID,
		payload:   c.norm.payload(ev.Args),
		data:      c.norm.data(ev.PayloadBytes),
		direction: Outbound,
		createdAt: observedAt,
	}

	c.mu.Lock()
	prev := c.pending.put(e)
	size := c.pending.len()
	c.mu.Unlock()

	c.metrics.PendingSize(size)
	if prev != nil {
		c.metrics.PendingOverwritten()
		c.logger.Info("Overwriting unresolved call on thread", logging.LogFields{
			"thread_id":        ev.ThreadID,
			"previous_service": prev.service,
			"previous_symbol":  prev.symbol,
			"service":          ev.Service,
		})
	}
}

func (c *Correlator) reply(ev Event, observedAt time.Time) *Record {
	payload := c.norm.payload(ev.Args)

	c.mu.Lock()
	e, ok := c.pending.take(ev.ThreadID)
	size := c.pending.len()
	c.mu.Unlock()

	if !ok {
		rec := c.record(RecordOrphan, ev, Inbound, payload, observedAt)
		c.metrics.RecordEmitted(RecordOrphan)
		c.logger.Debug("Reply without pending call", logging.LogFields{"thread_id": ev.ThreadID, "service": ev.Service})
		return rec
	}

	c.metrics.PendingSize(size)
	rec := &Record{
		ID:         ids.CreateULIDAt(observedAt),
		Kind:       RecordCompleted,
		Service:    e.service,
		Direction:  e.direction,
		Symbol:     e.symbol,
		ThreadID:   e.threadID,
		Payload:    e.payload,
		Response:   payload,
		Data:       e.data,
		ObservedAt: observedAt,
	}
	if rec.Service == "" {
		rec.Service = ev.Service
	}
	if len(rec.Data) == 0 {
		rec.Data = c.norm.data(ev.PayloadBytes)
	}
	c.metrics.RecordEmitted(RecordCompleted)
	return rec
}

func (c *Correlator) record(kind RecordKind, ev Event, dir Direction, payload json.RawMessage, observedAt time.Time) *Record {
	return &Record{
		ID:         ids.CreateULIDAt(observedAt),
		Kind:       kind,
		Service:    ev.Service,
		Direction:  dir,
		Symbol:     ev.Symbol,
		ThreadID:   ev.ThreadID,
		Payload:    payload,
		Data:       c.norm.data(ev.PayloadBytes),
		ObservedAt: observedAt,
	}
}

// dropped runs when the table evicts an unresolved call. It may run on the
// LRU's cleanup goroutine.
func (c *Correlator) dropped(e *entry, reason EvictReason) {
	c.metrics.PendingEvicted(reason)
	c.logger.Info("Dropping unresolved call", logging.LogFields{
		"thread_id": e.threadID,
		"service":   e.service,
		"symbol":    e.symbol,
		"reason":    string(reason),
	})
}

func (c *Correlator) observedAt(ev Event) time.Time {
	if ev.Timestamp > 0 {
		return time.UnixMilli(ev.Timestamp).UTC()
	}
	return c.now().UTC()
}
