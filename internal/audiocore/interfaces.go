package audiocore

import (
	"context"
	"fmt"
)

// AudioFormat represents the format of audio data
type AudioFormat struct {
	SampleRate int    // Sample rate in Hz (e.g., 16000)
	Channels   int    // Number of channels (only mono is supported)
	BitDepth   int    // Bits per sample
	Encoding   string // Encoding format (e.g., "pcm_f32le")
}

// CaptureFormat returns the mono float32 format the capture engine consumes.
func CaptureFormat(sampleRate int) AudioFormat {
	return AudioFormat{
		SampleRate: sampleRate,
		Channels:   MonoChannels,
		BitDepth:   BytesPerSample * 8,
		Encoding:   EncodingFloat32LE,
	}
}

// Validate reports whether the format can be delivered to a SampleSink.
func (f AudioFormat) Validate() error {
	if f.SampleRate <= 0 {
		return newFormatError(f, "sample rate must be positive")
	}
	if f.Channels != MonoChannels {
		return newFormatError(f, "only mono capture is supported")
	}
	if f.Encoding != EncodingFloat32LE || f.BitDepth != BytesPerSample*8 {
		return newFormatError(f, "only 32-bit float little-endian samples are supported")
	}
	return nil
}

// String returns a compact description such as "16000Hz/1ch/pcm_f32le".
func (f AudioFormat) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.Encoding)
}

// SampleSink receives raw interleaved sample bytes from a source.
//
// Implementations are called from the source's delivery thread; for hardware
// devices this is a real-time audio callback. OnSamplesReceived must return
// quickly and must not retain data after returning.
type SampleSink interface {
	OnSamplesReceived(data []byte)
}

// SampleSinkFunc adapts a function to the SampleSink interface.
type SampleSinkFunc func(data []byte)

// OnSamplesReceived calls f(data).
func (f SampleSinkFunc) OnSamplesReceived(data []byte) {
	f(data)
}

// AudioSource produces mono float32 samples into a SampleSink.
//
// Open acquires the underlying device or file and reports the format that will
// be delivered. Start and Stop resume and pause delivery without releasing the
// device; Close releases it. Start on a running source and Stop on a stopped
// one return ErrSourceRunning and ErrSourceNotRunning.
type AudioSource interface {
	ID() string
	Name() string
	Open(ctx context.Context, sink SampleSink) (AudioFormat, error)
	Start() error
	Stop() error
	Close() error
}

// DeviceInfo describes an available capture device.
type DeviceInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	ID        string `json:"id"`
	IsDefault bool   `json:"is_default"`
}
