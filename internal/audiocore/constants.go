package audiocore

// Sample format constants
const (
	// BytesPerSample is the size of one 32-bit float sample.
	BytesPerSample = 4

	// MonoChannels is the only channel count the capture engine accepts.
	MonoChannels = 1

	// EncodingFloat32LE names the 32-bit little-endian float encoding.
	EncodingFloat32LE = "pcm_f32le"

	// DefaultFramesPerPeriod is the device period requested from the audio backend.
	DefaultFramesPerPeriod = 1024
)
