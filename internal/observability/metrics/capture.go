package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/dualcapture/internal/audiocore/capture"
)

// CaptureMetrics contains Prometheus metrics for the dual-buffer capture engine.
//
// Engine counters are not touched from the real-time producer path. They are
// derived from capture.Stats snapshots passed to UpdateEngineStats by the
// consumer, which adds the difference since the previous snapshot.
type CaptureMetrics struct {
	registry *prometheus.Registry

	// Engine sample flow, derived from snapshots
	samplesTotal *prometheus.CounterVec
	pullsTotal   *prometheus.CounterVec

	// Engine state gauges
	slotCursor    *prometheus.GaugeVec
	slotFillRatio *prometheus.GaugeVec
	slotState     *prometheus.GaugeVec
	engineState   *prometheus.GaugeVec
	capacity      prometheus.Gauge

	// Consumer side
	windowSamples   prometheus.Histogram
	handlerDuration *prometheus.HistogramVec
	levelDBFS       *prometheus.GaugeVec
	clippedWindows  prometheus.Counter

	// Generic Recorder metrics
	operationsTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec

	mu   sync.Mutex
	last capture.Stats
}

// NewCaptureMetrics creates and registers new capture metrics
func NewCaptureMetrics(registry *prometheus.Registry) (*CaptureMetrics, error) {
	m := &CaptureMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CaptureMetrics) initMetrics() {
	m.samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_samples_total",
			Help: "Total number of samples handled by the capture engine",
		},
		[]string{"outcome"}, // received, written, overflow, oversize, contended, pulled
	)

	m.pullsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_pulls_total",
			Help: "Total number of consumer pulls",
		},
		[]string{"result"}, // success, miss
	)

	m.slotCursor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "capture_slot_cursor_samples",
			Help: "Number of samples currently buffered in a slot",
		},
		[]string{"slot"},
	)

	m.slotFillRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "capture_slot_fill_ratio",
			Help: "Slot cursor divided by slot capacity",
		},
		[]string{"slot"},
	)

	m.slotState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "capture_slot_state",
			Help: "Slot fill state (1 for the current state, 0 otherwise)",
		},
		[]string{"slot", "state"},
	)

	m.engineState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "capture_engine_state",
			Help: "Engine flags (1 true, 0 false); active_slot_b is 1 when slot B is active",
		},
		[]string{"flag"}, // running, buffered, active_slot_b
	)

	m.capacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "capture_slot_capacity_samples",
		Help: "Fixed capacity of each slot in samples",
	})

	m.windowSamples = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "capture_window_samples",
		Help:    "Number of samples returned by successful pulls",
		Buckets: prometheus.ExponentialBuckets(256, 2, 12), // 256 to ~512k samples
	})

	m.handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "capture_operation_duration_seconds",
			Help:    "Time taken by consumer side operations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100us to ~1.6s
		},
		[]string{"operation"},
	)

	m.levelDBFS = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "capture_window_level_dbfs",
			Help: "Level of the most recent window in dBFS",
		},
		[]string{"measure"}, // rms, peak
	)

	m.clippedWindows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capture_clipped_windows_total",
		Help: "Total number of windows containing clipped samples",
	})

	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_operations_total",
			Help: "Total number of lifecycle operations",
		},
		[]string{"operation", "status"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_errors_total",
			Help: "Total number of errors by operation and type",
		},
		[]string{"operation", "error_type"},
	)
}

func (m *CaptureMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.samplesTotal,
		m.pullsTotal,
		m.slotCursor,
		m.slotFillRatio,
		m.slotState,
		m.engineState,
		m.capacity,
		m.windowSamples,
		m.handlerDuration,
		m.levelDBFS,
		m.clippedWindows,
		m.operationsTotal,
		m.errorsTotal,
	}
}

// Describe implements prometheus.Collector
func (m *CaptureMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (m *CaptureMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// UpdateEngineStats publishes an engine snapshot. Counters advance by the
// difference from the previous snapshot; a snapshot from a different engine
// restarts the baseline.
func (m *CaptureMetrics) UpdateEngineStats(st capture.Stats) {
	m.mu.Lock()
	prev := m.last
	if prev.EngineID != st.EngineID {
		prev = capture.Stats{}
	}
	m.last = st
	m.mu.Unlock()

	addDelta(m.samplesTotal.WithLabelValues("received"), prev.SamplesReceived, st.SamplesReceived)
	addDelta(m.samplesTotal.WithLabelValues("written"), prev.SamplesWritten, st.SamplesWritten)
	addDelta(m.samplesTotal.WithLabelValues("overflow"), prev.SamplesOverflow, st.SamplesOverflow)
	addDelta(m.samplesTotal.WithLabelValues("oversize"), prev.SamplesOversize, st.SamplesOversize)
	addDelta(m.samplesTotal.WithLabelValues("contended"), prev.SamplesContended, st.SamplesContended)
	addDelta(m.samplesTotal.WithLabelValues("pulled"), prev.SamplesPulled, st.SamplesPulled)
	addDelta(m.pullsTotal.WithLabelValues("success"), prev.Pulls, st.Pulls)
	addDelta(m.pullsTotal.WithLabelValues("miss"), prev.PullMisses, st.PullMisses)

	m.capacity.Set(float64(st.Config.Capacity))
	for _, s := range st.Slots {
		slot := s.Slot.String()
		m.slotCursor.WithLabelValues(slot).Set(float64(s.Cursor))
		if st.Config.Capacity > 0 {
			m.slotFillRatio.WithLabelValues(slot).Set(float64(s.Cursor) / float64(st.Config.Capacity))
		}
		for _, state := range []capture.SlotState{capture.SlotEmpty, capture.SlotPartial, capture.SlotFull} {
			m.slotState.WithLabelValues(slot, state.String()).Set(boolToFloat(s.State == state))
		}
	}
	m.engineState.WithLabelValues("running").Set(boolToFloat(st.Running))
	m.engineState.WithLabelValues("buffered").Set(boolToFloat(st.Buffered))
	m.engineState.WithLabelValues("active_slot_b").Set(boolToFloat(st.ActiveSlot == capture.SlotB))
}

// RecordWindow records a successful pull of n samples.
func (m *CaptureMetrics) RecordWindow(n int) {
	m.windowSamples.Observe(float64(n))
}

// RecordLevel records the level of the latest window.
func (m *CaptureMetrics) RecordLevel(rmsDBFS, peakDBFS float64, clipped bool) {
	m.levelDBFS.WithLabelValues("rms").Set(rmsDBFS)
	m.levelDBFS.WithLabelValues("peak").Set(peakDBFS)
	if clipped {
		m.clippedWindows.Inc()
	}
}

// RecordOperation implements Recorder
func (m *CaptureMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *CaptureMetrics) RecordDuration(operation string, seconds float64) {
	m.handlerDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *CaptureMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

func addDelta(c prometheus.Counter, prev, cur uint64) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
