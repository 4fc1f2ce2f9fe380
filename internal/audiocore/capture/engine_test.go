package capture

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dualcapture/internal/audiocore"
	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
)

func newTestEngine(t *testing.T, windowMs, sampleRate int) *Engine {
	t.Helper()
	e := New(WithLogger(logger.NewTestLogger(io.Discard, logger.LogLevelError)))
	require.NoError(t, e.Initialize(windowMs, sampleRate))
	require.NoError(t, e.Start())
	return e
}

// ramp returns n samples counting up from start.
func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		windowMs   int
		sampleRate int
		wantCap    int
		wantErr    error
	}{
		{"one second at 16k", 1000, 16000, 16000, nil},
		{"quarter second at 48k", 250, 48000, 12000, nil},
		{"zero window", 0, 16000, 0, ErrInvalidCapacity},
		{"negative sample rate", 1000, -1, 0, ErrInvalidCapacity},
		{"window too short for rate", 1, 999, 0, ErrInvalidCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := New(WithLogger(logger.NewTestLogger(io.Discard, logger.LogLevelError)))
			err := e.Initialize(tt.windowMs, tt.sampleRate)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				assert.Equal(t, Config{}, e.Config())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCap, e.Config().Capacity)

			st := e.Stats()
			assert.True(t, st.Initialized)
			assert.False(t, st.Running)
			assert.False(t, st.Buffered)
			assert.Equal(t, SlotB, st.ActiveSlot)
			for _, s := range st.Slots {
				assert.Equal(t, 0, s.Cursor)
				assert.Equal(t, SlotEmpty, s.State)
			}
		})
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	t.Parallel()

	e := New(WithLogger(logger.NewTestLogger(io.Discard, logger.LogLevelError)))
	require.NoError(t, e.Initialize(1000, 16000))
	err := e.Initialize(500, 8000)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, 16000, e.Config().Capacity)
}

func TestLifecyclePreconditions(t *testing.T) {
	t.Parallel()

	var buf safeBuffer
	e := New(WithLogger(logger.NewTestLogger(&buf, logger.LogLevelWarn)), WithID("engine-under-test"))
	assert.Equal(t, "engine-under-test", e.ID())

	require.ErrorIs(t, e.Start(), ErrNotInitialized)
	require.ErrorIs(t, e.Stop(), ErrNotRunning)

	require.NoError(t, e.Initialize(1000, 16000))
	require.ErrorIs(t, e.Reset(), ErrNotRunning)

	require.NoError(t, e.Start())
	assert.True(t, e.Running())
	require.ErrorIs(t, e.Start(), ErrAlreadyRunning)

	require.NoError(t, e.Stop())
	assert.False(t, e.Running())
	require.ErrorIs(t, e.Stop(), ErrNotRunning)

	// Restart keeps the engine usable.
	require.NoError(t, e.Start())

	for _, err := range []error{ErrNotInitialized, ErrAlreadyRunning, ErrNotRunning} {
		assert.True(t, errors.IsCategory(err, errors.CategoryState))
	}
	assert.NotErrorIs(t, ErrNotRunning, ErrAlreadyRunning)

	out := buf.String()
	assert.Contains(t, out, "capture control operation rejected")
	assert.Contains(t, out, "error=\"already running\"")
	assert.Contains(t, out, "engine_id=engine-under-test")
}

func TestWarmupVisibility(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 16000)

	e.WriteSamples(make([]float32, 7999))
	out, ok := e.Pull(100, nil)
	assert.False(t, ok)
	assert.Empty(t, out)
	assert.False(t, e.Buffered())

	st := e.Stats()
	assert.Equal(t, 7999, st.Slots[SlotB].Cursor)
	assert.Equal(t, SlotPartial, st.Slots[SlotB].State)
	assert.Equal(t, 0, st.Slots[SlotA].Cursor, "warm-up must not touch slot A")

	e.WriteSamples(make([]float32, 1))
	assert.True(t, e.Buffered())

	st = e.Stats()
	assert.Equal(t, SlotFull, st.Slots[SlotB].State)
	assert.Equal(t, SlotB, st.ActiveSlot)
	assert.Equal(t, SlotEmpty, st.Slots[SlotA].State)

	out, ok = e.Pull(500, nil)
	require.True(t, ok)
	assert.Len(t, out, 8000)
}

func TestEndToEndSixteenKilohertz(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 16000)
	require.Equal(t, 16000, e.Config().Capacity)

	e.OnSamplesReceived(audiocore.AppendFloat32LE(nil, make([]float32, 8000)))
	assert.True(t, e.Buffered())

	out, ok := e.Pull(1000, nil)
	assert.False(t, ok, "8000 samples cannot satisfy a 16000 sample request")
	assert.Empty(t, out)

	e.OnSamplesReceived(audiocore.AppendFloat32LE(nil, make([]float32, 8000)))
	st := e.Stats()
	assert.Equal(t, 16000, st.Slots[SlotB].Cursor)
	assert.Equal(t, SlotFull, st.Slots[SlotB].State)

	out, ok = e.Pull(1000, out)
	require.True(t, ok)
	assert.Len(t, out, 16000)

	st = e.Stats()
	assert.Equal(t, 0, st.Slots[SlotB].Cursor)
	assert.Equal(t, SlotEmpty, st.Slots[SlotB].State)
	assert.Equal(t, SlotA, st.ActiveSlot)
	assert.Equal(t, uint64(1), st.Pulls)
	assert.Equal(t, uint64(1), st.PullMisses)
	assert.Equal(t, uint64(16000), st.SamplesPulled)
}

func TestOversizeChunkKeepsMostRecentSamples(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 1000)
	require.Equal(t, 1000, e.Config().Capacity)

	e.WriteSamples(ramp(0, 1500))

	st := e.Stats()
	assert.Equal(t, 1000, st.Slots[SlotB].Cursor)
	assert.Equal(t, uint64(500), st.SamplesOversize)
	assert.Equal(t, uint64(1000), st.SamplesWritten)

	out, ok := e.Pull(1000, nil)
	require.True(t, ok)
	assert.Equal(t, ramp(500, 1000), out)
}

func TestSteadyStateOverflowIsDropped(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 1000)

	e.WriteSamples(ramp(0, 500)) // completes warm-up
	require.True(t, e.Buffered())

	e.WriteSamples(ramp(500, 800))

	st := e.Stats()
	assert.Equal(t, 1000, st.Slots[SlotB].Cursor)
	assert.Equal(t, uint64(300), st.SamplesOverflow)
	assert.Equal(t, uint64(300), st.SamplesDropped())
	assert.Equal(t, 0, st.Slots[SlotA].Cursor, "overflow must not spill into the idle slot")

	out, ok := e.Pull(1000, nil)
	require.True(t, ok)
	assert.Equal(t, ramp(0, 1000), out, "the head of the overflowing chunk is kept")
}

func TestPullDrainsWholeSlotAndHandsOff(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 1000)

	e.WriteSamples(ramp(0, 600))
	out, ok := e.Pull(500, nil)
	require.True(t, ok)
	assert.Equal(t, ramp(0, 600), out, "all buffered samples are returned, not just the request")

	// Slot A is now active and empty.
	_, ok = e.Pull(500, out)
	assert.False(t, ok)

	e.WriteSamples(ramp(600, 300))
	st := e.Stats()
	assert.Equal(t, SlotA, st.ActiveSlot)
	assert.Equal(t, SlotPartial, st.Slots[SlotA].State)
	assert.Equal(t, 300, st.Slots[SlotA].Cursor)

	out, ok = e.Pull(250, out)
	require.True(t, ok)
	assert.Equal(t, ramp(600, 300), out)
	assert.Equal(t, SlotB, e.Stats().ActiveSlot)
}

func TestPullDefaultsAndClampsRequest(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 1000)
	e.WriteSamples(ramp(0, 999))

	// 0 ms requests the configured window of 1000 samples.
	_, ok := e.Pull(0, nil)
	assert.False(t, ok)

	e.WriteSamples(ramp(999, 1))
	// 5000 ms is clamped to the slot capacity.
	out, ok := e.Pull(5000, nil)
	require.True(t, ok)
	assert.Len(t, out, 1000)
}

func TestPullReusesResultBuffer(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 1000)
	e.WriteSamples(ramp(0, 500))

	result := make([]float32, 10, 1000)
	out, ok := e.Pull(500, result)
	require.True(t, ok)
	require.Len(t, out, 500)
	assert.Same(t, &result[0], &out[0])
}

func TestStoppedEngineIgnoresIO(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 1000)
	e.WriteSamples(ramp(0, 600))
	require.NoError(t, e.Stop())

	_, ok := e.Pull(100, nil)
	assert.False(t, ok, "pull fails while stopped")

	e.WriteSamples(ramp(600, 100))
	e.OnSamplesReceived(audiocore.AppendFloat32LE(nil, ramp(700, 100)))
	st := e.Stats()
	assert.Equal(t, uint64(600), st.SamplesReceived)
	assert.Equal(t, 600, st.Slots[SlotB].Cursor)

	// Start does not reset buffered data.
	require.NoError(t, e.Start())
	out, ok := e.Pull(100, nil)
	require.True(t, ok)
	assert.Equal(t, ramp(0, 600), out)
}

func TestPullBeforeStart(t *testing.T) {
	t.Parallel()

	e := New(WithLogger(logger.NewTestLogger(io.Discard, logger.LogLevelError)))
	_, ok := e.Pull(100, nil)
	assert.False(t, ok)

	require.NoError(t, e.Initialize(1000, 1000))
	_, ok = e.Pull(100, nil)
	assert.False(t, ok)
}

func TestResetDiscardsPendingSamples(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 1000)
	e.WriteSamples(ramp(0, 700))
	require.NoError(t, e.Reset())

	st := e.Stats()
	for _, s := range st.Slots {
		assert.Equal(t, 0, s.Cursor)
		assert.Equal(t, SlotEmpty, s.State)
	}
	assert.True(t, st.Buffered, "reset does not repeat warm-up")

	_, ok := e.Pull(100, nil)
	assert.False(t, ok)

	e.WriteSamples(ramp(700, 100))
	out, ok := e.Pull(100, nil)
	require.True(t, ok)
	assert.Equal(t, ramp(700, 100), out)
}

func TestOnSamplesReceivedDecodesBytes(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1000, 1000)

	raw := audiocore.AppendFloat32LE(nil, []float32{0.25, -0.5, 1})
	raw = append(raw, 0xAA, 0xBB) // trailing partial sample
	e.OnSamplesReceived(raw)
	e.OnSamplesReceived(raw[:3]) // less than one sample
	e.OnSamplesReceived(nil)

	st := e.Stats()
	assert.Equal(t, uint64(3), st.SamplesReceived)
	assert.Equal(t, 3, st.Slots[SlotB].Cursor)

	e.WriteSamples(make([]float32, 497))
	out, ok := e.Pull(500, nil)
	require.True(t, ok)
	assert.Equal(t, []float32{0.25, -0.5, 1}, out[:3])
}

func TestProducerDoesNotAllocate(t *testing.T) {
	e := newTestEngine(t, 1000, 16000)
	raw := audiocore.AppendFloat32LE(nil, make([]float32, 256))
	samples := make([]float32, 256)

	allocs := testing.AllocsPerRun(100, func() {
		e.OnSamplesReceived(raw)
		e.WriteSamples(samples)
	})
	assert.Zero(t, allocs)
}

func TestConcurrentProducerConsumer(t *testing.T) {
	t.Parallel()

	const (
		sampleRate   = 8000
		windowMs     = 125 // capacity 1000
		totalSamples = 200_000
	)

	e := newTestEngine(t, windowMs, sampleRate)
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	var (
		wg      sync.WaitGroup
		windows [][]float32
	)
	producerDone := make(chan struct{})

	wg.Go(func() {
		defer close(producerDone)
		rng := rand.New(rand.NewPCG(1, 2))
		raw := make([]byte, 0, 1200*audiocore.BytesPerSample)
		for sent := 0; sent < totalSamples && ctx.Err() == nil; {
			n := min(1+rng.IntN(300), totalSamples-sent)
			if rng.IntN(50) == 0 {
				n = min(1000+rng.IntN(200), totalSamples-sent) // occasional oversize chunk
			}
			raw = audiocore.AppendFloat32LE(raw[:0], ramp(sent, n))
			e.OnSamplesReceived(raw)
			sent += n
		}
	})

	wg.Go(func() {
		rng := rand.New(rand.NewPCG(3, 4))
		for {
			out, ok := e.Pull(rng.IntN(windowMs+1), nil)
			if ok {
				windows = append(windows, out)
				continue
			}
			select {
			case <-producerDone:
				return
			case <-ctx.Done():
				return
			default:
				time.Sleep(50 * time.Microsecond)
			}
		}
	})

	wg.Wait()
	require.NoError(t, ctx.Err(), "producer and consumer must finish without deadlock")
	require.NoError(t, e.Stop())

	st := e.Stats()
	assert.Equal(t, uint64(totalSamples), st.SamplesReceived)
	assert.Equal(t, st.SamplesReceived, st.SamplesWritten+st.SamplesDropped(),
		"every received sample is either written or counted as dropped")

	var pulled int
	last := float32(-1)
	for _, w := range windows {
		require.NotEmpty(t, w)
		require.LessOrEqual(t, len(w), e.Config().Capacity)
		for _, v := range w {
			require.Greater(t, v, last, "samples must arrive in order without duplication")
			last = v
		}
		pulled += len(w)
	}
	residual := st.Slots[SlotA].Cursor + st.Slots[SlotB].Cursor
	assert.Equal(t, st.SamplesWritten, uint64(pulled+residual))
	assert.Equal(t, uint64(pulled), st.SamplesPulled)
	assert.Equal(t, uint64(len(windows)), st.Pulls)
	assert.Positive(t, st.Pulls)
}

// safeBuffer is a bytes.Buffer safe for concurrent log writes.
type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
