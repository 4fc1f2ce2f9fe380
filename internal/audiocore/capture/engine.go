// Package capture implements the dual-buffer capture engine.
//
// The engine owns two fixed-capacity float32 slots, A and B, each guarded by
// its own mutex. A real-time producer (the audio device callback) appends
// samples through OnSamplesReceived while a consumer drains complete windows
// with Pull. Neither side ever holds both slot locks, and the producer never
// blocks on the consumer: samples that do not fit are dropped and counted.
//
// Startup fills slot B only, and the first window becomes readable once B
// holds half its capacity. After that the producer and the consumer share a
// single active slot; a successful Pull drains it and hands the active role
// to the other slot.
package capture

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tphakala/dualcapture/internal/audiocore"
	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
)

// maxWriteAttempts bounds how often a producer write chases a concurrent hand-off.
const maxWriteAttempts = 3

// Config is the engine geometry fixed by Initialize.
type Config struct {
	WindowMs   int `json:"window_ms"`
	SampleRate int `json:"sample_rate"`
	Capacity   int `json:"capacity"` // samples per slot
}

// GetLogger returns the capture module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("capture")
}

// Engine is a dual-buffer capture engine. It is safe for one producer
// goroutine and any number of consumer goroutines.
type Engine struct {
	id  string
	log logger.Logger

	ctrlMu sync.Mutex // serializes Initialize
	cfg    Config     // written once before initialized is set

	slots [2]slot

	initialized atomic.Bool
	running     atomic.Bool
	buffered    atomic.Bool
	active      atomic.Int32

	counters counters
}

type counters struct {
	received  atomic.Uint64
	written   atomic.Uint64
	overflow  atomic.Uint64
	oversize  atomic.Uint64
	contended atomic.Uint64
	pulls     atomic.Uint64
	misses    atomic.Uint64
	pulled    atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithID overrides the generated engine ID.
func WithID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}

// New returns an uninitialized engine.
func New(opts ...Option) *Engine {
	e := &Engine{id: uuid.NewString()}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = GetLogger()
	}
	e.log = e.log.With(logger.String("engine_id", e.id))
	return e
}

// ID returns the engine identifier.
func (e *Engine) ID() string {
	return e.id
}

// Config returns the geometry set by Initialize, or the zero Config before it.
func (e *Engine) Config() Config {
	if !e.initialized.Load() {
		return Config{}
	}
	return e.cfg
}

// Initialize allocates both slots with capacity sampleRate*windowMs/1000.
// It may be called once.
func (e *Engine) Initialize(windowMs, sampleRate int) error {
	e.ctrlMu.Lock()
	defer e.ctrlMu.Unlock()

	if e.initialized.Load() {
		return e.fail("initialize", ErrAlreadyInitialized)
	}

	capacity := audiocore.SampleCount(sampleRate, windowMs)
	if windowMs <= 0 || sampleRate <= 0 || capacity <= 0 {
		e.log.Warn("cannot initialize capture buffers",
			logger.Error(ErrInvalidCapacity),
			logger.Int("window_ms", windowMs),
			logger.Int("sample_rate", sampleRate))
		return ErrInvalidCapacity
	}

	e.cfg = Config{WindowMs: windowMs, SampleRate: sampleRate, Capacity: capacity}
	for i := range e.slots {
		e.slots[i].data = make([]float32, capacity)
		e.slots[i].clear()
	}
	e.buffered.Store(false)
	e.active.Store(int32(SlotB))
	e.running.Store(false)
	e.initialized.Store(true)

	e.log.Info("capture buffers initialized",
		logger.Int("window_ms", windowMs),
		logger.Int("sample_rate", sampleRate),
		logger.Int("capacity", capacity))
	return nil
}

// Start enables the producer path. Buffered data is kept.
func (e *Engine) Start() error {
	if !e.initialized.Load() {
		return e.fail("start", ErrNotInitialized)
	}
	if !e.running.CompareAndSwap(false, true) {
		return e.fail("start", ErrAlreadyRunning)
	}
	e.log.Info("capture started")
	return nil
}

// Stop disables the producer path. A callback already past its running check
// may still complete its write.
func (e *Engine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return e.fail("stop", ErrNotRunning)
	}
	e.log.Info("capture stopped")
	return nil
}

// Reset discards pending samples in both slots. Each slot is cleared under its
// own lock, one at a time. Both slots are deliberately left EMPTY rather than
// keeping their fill state, so a FULL slot with a zero cursor can never be
// drained as an empty window. Warm-up is not repeated.
func (e *Engine) Reset() error {
	if !e.running.Load() {
		return e.fail("reset", ErrNotRunning)
	}
	var discarded int
	for i := range e.slots {
		s := &e.slots[i]
		s.mu.Lock()
		discarded += s.cursor
		s.clear()
		s.mu.Unlock()
	}
	e.log.Debug("capture buffers reset", logger.Int("discarded_samples", discarded))
	return nil
}

// Running reports whether the producer path is enabled.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Buffered reports whether warm-up has completed.
func (e *Engine) Buffered() bool {
	return e.buffered.Load()
}

// OnSamplesReceived implements audiocore.SampleSink. data holds little-endian
// float32 mono samples; a trailing partial sample is ignored. It never blocks
// on the consumer and never allocates.
func (e *Engine) OnSamplesReceived(data []byte) {
	if !e.running.Load() {
		return
	}
	n := len(data) / audiocore.BytesPerSample
	if n == 0 {
		return
	}
	skip := e.clampChunk(n)
	e.produce(data[skip*audiocore.BytesPerSample:], nil, n-skip)
}

// WriteSamples is the float32 form of OnSamplesReceived.
func (e *Engine) WriteSamples(samples []float32) {
	if !e.running.Load() || len(samples) == 0 {
		return
	}
	skip := e.clampChunk(len(samples))
	e.produce(nil, samples[skip:], len(samples)-skip)
}

// clampChunk counts n received samples and returns how many leading samples
// to skip so that at most one slot capacity, the most recent part, is kept.
func (e *Engine) clampChunk(n int) int {
	e.counters.received.Add(uint64(n))
	excess := n - e.cfg.Capacity
	if excess <= 0 {
		return 0
	}
	e.counters.oversize.Add(uint64(excess))
	return excess
}

// produce appends n samples to the warm-up slot or the active slot.
func (e *Engine) produce(raw []byte, samples []float32, n int) {
	for range maxWriteAttempts {
		warmup := !e.buffered.Load()
		id := SlotB
		if !warmup {
			id = SlotID(e.active.Load())
		}

		s := &e.slots[id]
		s.mu.Lock()
		// A pull may have handed the active role over between the load and the lock.
		if !warmup && SlotID(e.active.Load()) != id {
			s.mu.Unlock()
			continue
		}

		written, dropped := s.appendSamples(raw, samples, n)
		if warmup {
			s.markWritten(e.cfg.Capacity / 2)
			if s.state == SlotFull {
				e.active.Store(int32(SlotB))
				e.buffered.Store(true)
			}
		} else {
			s.markWritten(e.cfg.Capacity)
		}
		s.mu.Unlock()

		e.counters.written.Add(uint64(written))
		if dropped > 0 {
			e.counters.overflow.Add(uint64(dropped))
		}
		return
	}
	e.counters.contended.Add(uint64(n))
}

// Pull drains the active slot into result when it holds at least windowMs of
// samples (the configured window when windowMs <= 0, clamped to the slot
// capacity). All buffered samples of that slot are returned, so the result may
// be longer than requested. On success the slot is left EMPTY and the other
// slot becomes active. result's backing array is reused when large enough.
//
// Pull returns false without touching either slot before Start, during
// warm-up, or while the active slot is short of the requested window.
func (e *Engine) Pull(windowMs int, result []float32) ([]float32, bool) {
	if !e.initialized.Load() || !e.running.Load() || !e.buffered.Load() {
		return result, false
	}

	if windowMs <= 0 {
		windowMs = e.cfg.WindowMs
	}
	requested := min(audiocore.SampleCount(e.cfg.SampleRate, windowMs), e.cfg.Capacity)

	id := SlotID(e.active.Load())
	s := &e.slots[id]
	s.mu.Lock()
	if s.state == SlotEmpty || s.cursor < requested || s.cursor == 0 {
		s.mu.Unlock()
		e.counters.misses.Add(1)
		return result, false
	}

	result = append(result[:0], s.data[:s.cursor]...)
	s.clear()
	e.active.Store(int32(id.Other()))
	s.mu.Unlock()

	e.counters.pulls.Add(1)
	e.counters.pulled.Add(uint64(len(result)))
	return result, true
}

// fail logs a rejected control operation and returns err.
func (e *Engine) fail(op string, err *errors.EnhancedError) error {
	e.log.Warn("capture control operation rejected",
		logger.String("operation", op),
		logger.Error(err))
	return err
}
