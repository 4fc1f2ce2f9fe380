package audiocore

import (
	"github.com/tphakala/dualcapture/internal/errors"
)

// ComponentAudioCore identifies audiocore errors
const ComponentAudioCore = "audiocore"

// ErrInvalidAudioFormat is returned when an audio format cannot be captured
var ErrInvalidAudioFormat = errors.New(errors.NewStd("invalid audio format")).
	Component(ComponentAudioCore).
	Category(errors.CategoryValidation).
	Context("resource", "audio_format").
	Build()

func newFormatError(f AudioFormat, reason string) error {
	return errors.Newf("%w: %s (%s)", ErrInvalidAudioFormat, reason, f).
		Component(ComponentAudioCore).
		Category(errors.CategoryValidation).
		Context("sample_rate", f.SampleRate).
		Context("channels", f.Channels).
		Context("encoding", f.Encoding).
		Build()
}

// Source lifecycle errors shared by all AudioSource implementations.
var (
	ErrSourceNotOpen = errors.New(errors.NewStd("source not open")).
		Component(ComponentAudioCore).
		Category(errors.CategoryState).
		Build()
	ErrSourceRunning = errors.New(errors.NewStd("source already running")).
		Component(ComponentAudioCore).
		Category(errors.CategoryState).
		Build()
	ErrSourceNotRunning = errors.New(errors.NewStd("source not running")).
		Component(ComponentAudioCore).
		Category(errors.CategoryState).
		Build()
)
