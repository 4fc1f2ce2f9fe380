package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu       sync.Mutex
	enabled  bool
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(err *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, err)
}

func (r *recordingReporter) IsEnabled() bool { return r.enabled }

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderSetsFields(t *testing.T) {
	t.Parallel()

	ee := Newf("capacity %d", 0).
		Component("capture").
		Category(CategoryValidation).
		Priority("bogus").
		Context("window_ms", 0).
		Build()

	assert.Equal(t, "capacity 0", ee.Error())
	assert.Equal(t, "capture", ee.Component)
	assert.Equal(t, CategoryValidation, ee.Category)
	assert.Equal(t, PriorityMedium, ee.Priority)
	assert.Equal(t, map[string]any{"window_ms": 0}, ee.GetContext())
	assert.True(t, IsCategory(ee, CategoryValidation))
}

func TestSentinelsStayDistinct(t *testing.T) {
	t.Parallel()

	first := New(NewStd("first")).Category(CategoryState).Build()
	second := New(NewStd("second")).Category(CategoryState).Build()
	wrapped := fmt.Errorf("op failed: %w", first)

	assert.ErrorIs(t, wrapped, first)
	assert.NotErrorIs(t, wrapped, second)
	assert.False(t, Is(first, second))
}

func TestCategoryInheritedFromWrappedError(t *testing.T) {
	t.Parallel()

	inner := New(NewStd("device gone")).Category(CategoryAudioSource).Build()
	outer := New(fmt.Errorf("start: %w", inner)).Build()

	assert.Equal(t, CategoryAudioSource, outer.Category)
}

// Not parallel: mutates the global reporter.
func TestReporterReceivesBuiltErrors(t *testing.T) {
	reporter := &recordingReporter{enabled: true}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	New(NewStd("boom")).Component("capture").Build()

	require.Len(t, reporter.reported, 1)
	assert.Equal(t, "boom", reporter.reported[0].Error())

	SetTelemetryReporter(&recordingReporter{enabled: false})
	New(NewStd("ignored")).Build()
	assert.Len(t, reporter.reported, 1)
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		contains string
		absent   string
	}{
		{"url query", "Error at https://api.example.com?api_key=secret123&token=abc", "https://api.example.com?[REDACTED]", "secret123"},
		{"api key", "Config error: api_key=secret123 is invalid", "[API_KEY_REDACTED]", "secret123"},
		{"device id", "open failed device_id=hw:1,0", "[ID_REDACTED]", "hw:1,0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := scrubMessageForPrivacy(tt.input)
			assert.Contains(t, got, tt.contains)
			assert.NotContains(t, got, tt.absent)
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).
		Component("capture").
		Category(CategoryState).
		Context("operation", "engine_start").
		Build()

	assert.Equal(t, "Capture State Error Engine Start", generateErrorTitle(ee))
}
