// Package session runs one capture session: a source feeding a dual-buffer
// engine, a consumer draining it, and the optional metrics endpoint.
package session

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/dualcapture/internal/audiocore"
	"github.com/tphakala/dualcapture/internal/audiocore/capture"
	"github.com/tphakala/dualcapture/internal/audiocore/consumer"
	"github.com/tphakala/dualcapture/internal/conf"
	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
	"github.com/tphakala/dualcapture/internal/observability"
)

// Config is the subset of settings a session needs.
type Config struct {
	WindowMs       int
	RequestMs      int
	PollInterval   time.Duration
	MetricsEnabled bool
	MetricsListen  string
}

// ConfigFromSettings extracts the session configuration.
func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		WindowMs:       s.Capture.WindowMs,
		RequestMs:      s.Capture.RequestMs,
		PollInterval:   s.Capture.PollInterval,
		MetricsEnabled: s.Metrics.Enabled,
		MetricsListen:  s.Metrics.Listen,
	}
}

// GetLogger returns the session module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("session")
}

type options struct {
	handler consumer.Handler
	metrics *observability.Metrics
	log     logger.Logger
}

// Option customizes a session.
type Option func(*options)

// WithHandler replaces the default window handler, which logs window levels.
func WithHandler(h consumer.Handler) Option {
	return func(o *options) { o.handler = h }
}

// WithMetrics uses an existing metrics registry instead of creating one.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger overrides the session logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// finisher is implemented by sources with a natural end, such as files.
type finisher interface {
	Done() <-chan struct{}
}

// Run opens src, feeds it into a new engine and drains windows until ctx is
// cancelled or a finite source is exhausted. It returns the final engine stats.
func Run(ctx context.Context, cfg Config, src audiocore.AudioSource, opts ...Option) (capture.Stats, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = GetLogger()
	}
	if o.metrics == nil {
		m, err := observability.NewMetrics()
		if err != nil {
			return capture.Stats{}, err
		}
		o.metrics = m
	}
	recorder := o.metrics.Capture

	eng := capture.New(capture.WithLogger(o.log.Module("capture")))
	log := o.log.With(logger.String("engine_id", eng.ID()), logger.String("source", src.Name()))
	if o.handler == nil {
		o.handler = logWindow(log)
	}

	format, err := src.Open(ctx, eng)
	if err != nil {
		recorder.RecordError("source_open", errorType(err))
		return capture.Stats{}, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("source close failed", logger.Error(err))
		}
	}()

	if err := eng.Initialize(cfg.WindowMs, format.SampleRate); err != nil {
		recorder.RecordError("engine_initialize", errorType(err))
		return capture.Stats{}, err
	}
	if err := eng.Start(); err != nil {
		recorder.RecordError("engine_start", errorType(err))
		return capture.Stats{}, err
	}
	recorder.RecordOperation("engine_start", "success")

	poller := consumer.NewPoller(eng, consumer.Config{
		RequestMs: cfg.RequestMs,
		Interval:  cfg.PollInterval,
	}, o.handler, consumer.WithMetrics(recorder), consumer.WithLogger(o.log.Module("consumer")))

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		// Run only returns the context error.
		_ = poller.Run(runCtx)
		return nil
	})
	if cfg.MetricsEnabled {
		ep := observability.NewEndpoint(cfg.MetricsListen, o.metrics, eng.Stats)
		g.Go(func() error {
			return ep.Run(runCtx)
		})
	}

	if err := src.Start(); err != nil {
		recorder.RecordError("source_start", errorType(err))
		cancel()
		_ = g.Wait()
		_ = eng.Stop()
		return eng.Stats(), err
	}
	recorder.RecordOperation("source_start", "success")
	log.Info("capture session started",
		logger.String("format", format.String()),
		logger.Int("window_ms", cfg.WindowMs),
		logger.Int("capacity", eng.Config().Capacity))

	var done <-chan struct{}
	if f, ok := src.(finisher); ok {
		done = f.Done()
	}
	g.Go(func() error {
		defer cancel()
		select {
		case <-runCtx.Done():
		case <-done:
			log.Info("source finished")
		}
		return nil
	})

	runErr := g.Wait()

	if err := src.Stop(); err != nil && !errors.Is(err, audiocore.ErrSourceNotRunning) {
		log.Warn("source stop failed", logger.Error(err))
	}
	// Pick up a window completed after the last tick.
	poller.Poll(context.WithoutCancel(ctx))
	if err := eng.Stop(); err != nil {
		log.Warn("engine stop failed", logger.Error(err))
	}
	recorder.RecordOperation("engine_stop", "success")

	st := eng.Stats()
	log.Info("capture session finished",
		logger.Uint64("samples_received", st.SamplesReceived),
		logger.Uint64("samples_pulled", st.SamplesPulled),
		logger.Uint64("samples_dropped", st.SamplesDropped()),
		logger.Uint64("pulls", st.Pulls))

	return st, runErr
}

// logWindow returns the default handler, which logs each window's level.
func logWindow(log logger.Logger) consumer.Handler {
	return func(_ context.Context, w consumer.Window) error {
		log.Info("window captured",
			logger.Uint64("seq", w.Seq),
			logger.Int("samples", len(w.Samples)),
			logger.Float64("rms_dbfs", w.Level.RMSDBFS),
			logger.Float64("peak_dbfs", w.Level.PeakDBFS),
			logger.Int("clipped", w.Level.Clipped))
		return nil
	}
}

func errorType(err error) string {
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return enhanced.GetCategory()
	}
	return "unknown"
}
