// Package sources creates audio sources by type.
package sources

import (
	"github.com/tphakala/dualcapture/internal/audiocore"
	"github.com/tphakala/dualcapture/internal/audiocore/sources/malgo"
	"github.com/tphakala/dualcapture/internal/audiocore/sources/wavfile"
	"github.com/tphakala/dualcapture/internal/errors"
)

// Source types accepted by CreateSource.
const (
	TypeSoundcard = "soundcard"
	TypeFile      = "file"
)

// Config describes the source to create.
type Config struct {
	ID   string
	Type string

	// soundcard
	Device       string
	Backend      string
	SampleRate   int
	BufferFrames int

	// file
	Path     string
	Realtime bool
}

// CreateSource creates an audio source based on the provided configuration
func CreateSource(cfg Config) (audiocore.AudioSource, error) {
	switch cfg.Type {
	case TypeSoundcard, "malgo":
		return malgo.NewSource(cfg.ID, malgo.Config{
			Device:       cfg.Device,
			Backend:      cfg.Backend,
			SampleRate:   cfg.SampleRate,
			BufferFrames: cfg.BufferFrames,
		}), nil

	case TypeFile:
		if cfg.Path == "" {
			return nil, errors.Newf("file source requires a path").
				Component(audiocore.ComponentAudioCore).
				Category(errors.CategoryValidation).
				Context("source_id", cfg.ID).
				Build()
		}
		return wavfile.NewSource(cfg.ID, wavfile.Config{
			Path:        cfg.Path,
			Realtime:    cfg.Realtime,
			ChunkFrames: cfg.BufferFrames,
		}), nil

	default:
		return nil, errors.Newf("unknown source type: %s", cfg.Type).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("source_type", cfg.Type).
			Build()
	}
}

// ListAvailableDevices returns the capture devices on the given backend.
func ListAvailableDevices(backend string) ([]audiocore.DeviceInfo, error) {
	return malgo.ListDevices(backend)
}
