package consumer

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dualcapture/internal/audiocore/capture"
	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
)

type fakeMetrics struct {
	mu       sync.Mutex
	stats    []capture.Stats
	windows  []int
	levels   int
	clipped  int
	errTypes []string
}

func (f *fakeMetrics) UpdateEngineStats(st capture.Stats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, st)
}

func (f *fakeMetrics) RecordWindow(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, n)
}

func (f *fakeMetrics) RecordLevel(_, _ float64, clipped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels++
	if clipped {
		f.clipped++
	}
}

func (f *fakeMetrics) RecordDuration(string, float64) {}

func (f *fakeMetrics) RecordOperation(string, string) {}

func (f *fakeMetrics) RecordError(_, errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errTypes = append(f.errTypes, errorType)
}

func (f *fakeMetrics) windowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

// newEngine returns a running 100 ms / 1 kHz engine (capacity 100).
func newEngine(t *testing.T) *capture.Engine {
	t.Helper()
	e := capture.New(capture.WithLogger(logger.NewTestLogger(io.Discard, logger.LogLevelError)))
	require.NoError(t, e.Initialize(100, 1000))
	require.NoError(t, e.Start())
	return e
}

func constant(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestPollDeliversWindow(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	m := &fakeMetrics{}
	var got []Window
	var samples [][]float32
	p := NewPoller(e, Config{RequestMs: 50}, func(_ context.Context, w Window) error {
		got = append(got, w)
		samples = append(samples, append([]float32(nil), w.Samples...))
		return nil
	}, WithMetrics(m), WithLogger(logger.NewTestLogger(io.Discard, logger.LogLevelError)))

	// Warm-up: nothing to pull yet.
	e.WriteSamples(constant(0.5, 20))
	assert.False(t, p.Poll(t.Context()))
	assert.Empty(t, got)

	e.WriteSamples(constant(1, 40))
	require.True(t, p.Poll(t.Context()))
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Len(t, samples[0], 60)
	assert.Equal(t, 60, got[0].Level.Samples)
	assert.True(t, got[0].Level.IsClipped())

	assert.Equal(t, []int{60}, m.windows)
	assert.Equal(t, 1, m.levels)
	assert.Equal(t, 1, m.clipped)
	require.Len(t, m.stats, 2)
	assert.Equal(t, uint64(1), m.stats[1].Pulls)
	assert.False(t, m.stats[0].Buffered)
	assert.True(t, m.stats[1].Buffered)

	// Active slot is now A and empty.
	assert.False(t, p.Poll(t.Context()))
	e.WriteSamples(constant(0.25, 50))
	require.True(t, p.Poll(t.Context()))
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.Equal(t, constant(0.25, 50), samples[1])
}

func TestPollHandlerError(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	m := &fakeMetrics{}
	var logs bytes.Buffer
	sentinel := errors.Newf("sink rejected window").
		Component("test").
		Category(errors.CategoryResource).
		Build()

	p := NewPoller(e, Config{}, func(context.Context, Window) error { return sentinel },
		WithMetrics(m), WithLogger(logger.NewTestLogger(&logs, logger.LogLevelDebug)))

	e.WriteSamples(constant(0.1, 100))
	require.True(t, p.Poll(t.Context()))

	assert.Equal(t, []string{string(errors.CategoryResource)}, m.errTypes)
	assert.Contains(t, logs.String(), "window handler failed")
}

func TestPollNilHandler(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	m := &fakeMetrics{}
	p := NewPoller(e, Config{}, nil, WithMetrics(m), WithLogger(logger.NewTestLogger(io.Discard, logger.LogLevelError)))

	e.WriteSamples(constant(0.1, 100))
	assert.True(t, p.Poll(t.Context()))
	assert.Equal(t, []int{100}, m.windows)
}

func TestDropWarningIsRateLimited(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	var logs bytes.Buffer
	p := NewPoller(e, Config{}, nil, WithLogger(logger.NewTestLogger(&logs, logger.LogLevelDebug)))

	// Oversize chunks drop their head on every write.
	for range 3 {
		e.WriteSamples(constant(0.1, 150))
		p.Poll(t.Context())
	}

	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("capture engine dropped samples")))
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	m := &fakeMetrics{}
	p := NewPoller(e, Config{Interval: 5 * time.Millisecond}, nil,
		WithMetrics(m), WithLogger(logger.NewTestLogger(io.Discard, logger.LogLevelError)))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	e.WriteSamples(constant(0.1, 100))
	require.Eventually(t, func() bool { return m.windowCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
