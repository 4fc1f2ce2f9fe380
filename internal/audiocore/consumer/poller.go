// Package consumer drains complete windows from a capture engine on a fixed cadence.
package consumer

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/dualcapture/internal/audiocore/capture"
	"github.com/tphakala/dualcapture/internal/audiocore/processors"
	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
	"github.com/tphakala/dualcapture/internal/observability/metrics"
)

const (
	// DefaultInterval is the pull cadence when none is configured.
	DefaultInterval = 100 * time.Millisecond

	dropWarnInterval = 10 * time.Second
)

// Source is the consumer-side view of a capture engine.
type Source interface {
	Pull(windowMs int, result []float32) ([]float32, bool)
	Stats() capture.Stats
}

// MetricsRecorder receives per-poll observations.
type MetricsRecorder interface {
	metrics.Recorder
	UpdateEngineStats(st capture.Stats)
	RecordWindow(n int)
	RecordLevel(rmsDBFS, peakDBFS float64, clipped bool)
}

// Window is one drained block of samples. Samples is only valid for the
// duration of the handler call; the poller reuses the backing array.
type Window struct {
	Seq      uint64
	Samples  []float32
	Level    processors.Level
	PulledAt time.Time
}

// Handler processes a window. A returned error is logged and counted; polling continues.
type Handler func(ctx context.Context, w Window) error

// Config controls the poll loop.
type Config struct {
	RequestMs int           // 0 pulls whatever the engine configured
	Interval  time.Duration // 0 selects DefaultInterval
}

// Poller periodically pulls windows and passes them to a handler.
type Poller struct {
	src     Source
	cfg     Config
	handler Handler
	metrics MetricsRecorder
	log     logger.Logger

	buf         []float32
	seq         uint64
	lastDropped uint64
	dropLimiter *rate.Limiter
}

// Option configures a Poller.
type Option func(*Poller)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithLogger overrides the module logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

// GetLogger returns the consumer module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("consumer")
}

// NewPoller creates a poller. A nil handler discards windows after metering them.
func NewPoller(src Source, cfg Config, handler Handler, opts ...Option) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	p := &Poller{
		src:         src,
		cfg:         cfg,
		handler:     handler,
		dropLimiter: rate.NewLimiter(rate.Every(dropWarnInterval), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = GetLogger()
	}
	return p
}

// Run polls until ctx is cancelled. It always returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.log.Info("consumer started",
		logger.Int("request_ms", p.cfg.RequestMs),
		logger.Duration("interval", p.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			p.log.Info("consumer stopped", logger.Uint64("windows", p.seq))
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs a single pull and reports whether a window was delivered.
func (p *Poller) Poll(ctx context.Context) bool {
	out, ok := p.src.Pull(p.cfg.RequestMs, p.buf)
	st := p.src.Stats()
	p.checkDrops(&st)
	if p.metrics != nil {
		p.metrics.UpdateEngineStats(st)
	}
	if !ok {
		return false
	}
	p.buf = out

	p.seq++
	w := Window{
		Seq:      p.seq,
		Samples:  out,
		Level:    processors.MeasureLevel(out),
		PulledAt: time.Now(),
	}
	if p.metrics != nil {
		p.metrics.RecordWindow(len(out))
		p.metrics.RecordLevel(w.Level.RMSDBFS, w.Level.PeakDBFS, w.Level.IsClipped())
	}

	if p.handler == nil {
		return true
	}
	start := time.Now()
	err := p.handler(ctx, w)
	if p.metrics != nil {
		p.metrics.RecordDuration("window_handler", time.Since(start).Seconds())
	}
	if err != nil {
		var enhanced *errors.EnhancedError
		errType := "handler"
		if errors.As(err, &enhanced) {
			errType = enhanced.GetCategory()
		}
		if p.metrics != nil {
			p.metrics.RecordError("window_handler", errType)
		}
		p.log.Error("window handler failed",
			logger.Uint64("seq", w.Seq),
			logger.Error(err))
	}
	return true
}

// checkDrops logs a rate-limited warning when the engine dropped samples since the last poll.
func (p *Poller) checkDrops(st *capture.Stats) {
	dropped := st.SamplesDropped()
	if dropped < p.lastDropped {
		// engine was replaced
		p.lastDropped = 0
	}
	delta := dropped - p.lastDropped
	p.lastDropped = dropped
	if delta == 0 || !p.dropLimiter.Allow() {
		return
	}
	p.log.Warn("capture engine dropped samples",
		logger.Uint64("dropped", delta),
		logger.Uint64("overflow_total", st.SamplesOverflow),
		logger.Uint64("oversize_total", st.SamplesOversize),
		logger.Uint64("contended_total", st.SamplesContended))
}
