package audiocore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dualcapture/internal/errors"
)

func TestSampleCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sampleRate int
		durationMs int
		want       int
	}{
		{"one second at 16k", 16000, 1000, 16000},
		{"half second at 48k", 48000, 500, 24000},
		{"truncates fractional samples", 44100, 1, 44},
		{"zero duration", 16000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SampleCount(tt.sampleRate, tt.durationMs))
		})
	}
}

func TestDecodeFloat32LE(t *testing.T) {
	t.Parallel()

	input := []float32{0, 0.5, -1, 1.25}
	raw := AppendFloat32LE(nil, input)
	require.Len(t, raw, len(input)*BytesPerSample)

	t.Run("full decode", func(t *testing.T) {
		t.Parallel()
		dst := make([]float32, len(input))
		n := DecodeFloat32LE(dst, raw)
		assert.Equal(t, len(input), n)
		assert.Equal(t, input, dst)
	})

	t.Run("trailing partial sample ignored", func(t *testing.T) {
		t.Parallel()
		dst := make([]float32, len(input))
		n := DecodeFloat32LE(dst, raw[:len(raw)-1])
		assert.Equal(t, len(input)-1, n)
	})

	t.Run("destination bounds decode", func(t *testing.T) {
		t.Parallel()
		dst := make([]float32, 2)
		n := DecodeFloat32LE(dst, raw)
		assert.Equal(t, 2, n)
		assert.Equal(t, []float32{0, 0.5}, dst)
	})
}

func TestAudioFormatValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CaptureFormat(16000).Validate())

	stereo := CaptureFormat(16000)
	stereo.Channels = 2
	s16 := CaptureFormat(16000)
	s16.Encoding = "pcm_s16le"
	s16.BitDepth = 16

	for _, f := range []AudioFormat{stereo, s16, CaptureFormat(0)} {
		err := f.Validate()
		require.Error(t, err, f.String())
		assert.ErrorIs(t, err, ErrInvalidAudioFormat)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestSampleSinkFunc(t *testing.T) {
	t.Parallel()

	var got []byte
	var sink SampleSink = SampleSinkFunc(func(data []byte) { got = data })
	sink.OnSamplesReceived([]byte{1, 2, 3, 4})
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}
