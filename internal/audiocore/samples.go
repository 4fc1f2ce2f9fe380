package audiocore

import (
	"encoding/binary"
	"math"
)

// SampleCount returns the number of mono samples spanning durationMs at sampleRate.
func SampleCount(sampleRate, durationMs int) int {
	return sampleRate * durationMs / 1000
}

// DecodeFloat32LE decodes little-endian float32 samples from src into dst and
// returns the number of samples written. Trailing bytes that do not form a
// whole sample are ignored. It does not allocate.
func DecodeFloat32LE(dst []float32, src []byte) int {
	n := min(len(src)/BytesPerSample, len(dst))
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*BytesPerSample:]))
	}
	return n
}

// AppendFloat32LE appends the little-endian encoding of samples to dst.
func AppendFloat32LE(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
	}
	return dst
}
