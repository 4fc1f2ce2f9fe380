// Package audiocore holds the shared vocabulary of the capture pipeline:
// audio formats, the sample sink contract that sources deliver into, and
// helpers for the 32-bit little-endian float wire format used between a
// device callback and the capture engine.
//
// # Data Flow
//
//	Source (malgo device, WAV file) -> SampleSink (capture.Engine) -> consumer.Poller
//
// Sources call SampleSink.OnSamplesReceived from their delivery thread. For a
// hardware device that is the audio driver's real-time callback, so sinks
// must neither block nor allocate on that path.
//
// # Subpackages
//
//   - capture: the dual-buffer engine (two fixed slots, per-slot locks)
//   - consumer: polling loop that pulls windows from the engine
//   - processors: per-window analysis such as level metering
//   - sources: device and file sources plus the source factory
package audiocore
