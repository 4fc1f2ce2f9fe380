// Package malgo captures from a sound card through miniaudio and delivers
// float32 mono samples straight from the device callback.
package malgo

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/dualcapture/internal/audiocore"
	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
)

// ComponentMalgo identifies errors from the sound card source.
const ComponentMalgo = "malgo"

// Config selects and shapes the capture device.
type Config struct {
	Device       string // name, decoded ID or substring; empty selects the default
	Backend      string // empty selects the platform default
	SampleRate   int
	BufferFrames int
}

// Source is a sound card AudioSource.
type Source struct {
	id  string
	cfg Config
	log logger.Logger

	mu     sync.Mutex
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	name   string

	// sink is set in Open before the device can call back.
	sink    audiocore.SampleSink
	running atomic.Bool
}

// GetLogger returns the malgo module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("malgo")
}

// NewSource creates an unopened sound card source.
func NewSource(id string, cfg Config) *Source {
	if cfg.BufferFrames <= 0 {
		cfg.BufferFrames = audiocore.DefaultFramesPerPeriod
	}
	return &Source{
		id:  id,
		cfg: cfg,
		log: GetLogger().With(logger.String("source_id", id)),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return s.id
}

// Name returns the opened device name, or the configured one before Open.
func (s *Source) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name != "" {
		return s.name
	}
	return s.cfg.Device
}

// Open initializes the audio context and the capture device. Samples are not
// delivered until Start.
func (s *Source) Open(ctx context.Context, sink audiocore.SampleSink) (audiocore.AudioFormat, error) {
	format := audiocore.CaptureFormat(s.cfg.SampleRate)
	if err := format.Validate(); err != nil {
		return audiocore.AudioFormat{}, err
	}
	if err := ctx.Err(); err != nil {
		return audiocore.AudioFormat{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device != nil {
		return audiocore.AudioFormat{}, errors.Newf("source already open").
			Component(ComponentMalgo).
			Category(errors.CategoryState).
			Context("source_id", s.id).
			Build()
	}

	backends, err := backendsFor(s.cfg.Backend, runtime.GOOS)
	if err != nil {
		return audiocore.AudioFormat{}, err
	}

	mctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(message string) {
		s.log.Debug("miniaudio", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return audiocore.AudioFormat{}, s.audioError(err, "init_context")
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		freeContext(mctx)
		return audiocore.AudioFormat{}, s.audioError(err, "enumerate_devices")
	}
	devices := describeDevices(infos)
	for _, d := range devices {
		s.log.Info("capture device available",
			logger.Int("index", d.Index),
			logger.String("name", d.Name),
			logger.String("id", d.ID),
			logger.Bool("default", d.IsDefault))
	}

	pos, err := selectDevice(devices, s.cfg.Device)
	if err != nil {
		freeContext(mctx)
		return audiocore.AudioFormat{}, err
	}
	selected := devices[pos]

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = audiocore.MonoChannels
	deviceConfig.Capture.DeviceID = infos[selected.Index].ID.Pointer()
	deviceConfig.SampleRate = uint32(s.cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(s.cfg.BufferFrames)
	deviceConfig.Alsa.NoMMap = 1

	s.sink = sink
	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onDeviceStop,
	})
	if err != nil {
		freeContext(mctx)
		return audiocore.AudioFormat{}, s.audioError(err, "init_device")
	}

	s.mctx = mctx
	s.device = device
	s.name = selected.Name

	obtained := obtainedFormat(s.cfg.SampleRate, device.SampleRate())
	s.log.Info("capture device opened",
		logger.String("device", selected.Name),
		logger.String("device_id", selected.ID),
		logger.Int("sample_rate", obtained.SampleRate),
		logger.String("format", formatName(device.CaptureFormat())),
		logger.Int("channels", int(device.CaptureChannels())),
		logger.Int("frames_per_period", s.cfg.BufferFrames))
	if obtained.SampleRate != s.cfg.SampleRate {
		s.log.Warn("device sample rate differs from requested",
			logger.Int("requested", s.cfg.SampleRate),
			logger.Int("obtained", obtained.SampleRate))
	}

	return obtained, nil
}

// obtainedFormat is the capture format at the rate the device negotiated. A
// zero rate means the backend did not report one.
func obtainedFormat(requested int, obtained uint32) audiocore.AudioFormat {
	if obtained == 0 {
		return audiocore.CaptureFormat(requested)
	}
	return audiocore.CaptureFormat(int(obtained))
}

// Start resumes sample delivery.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return audiocore.ErrSourceNotOpen
	}
	if s.running.Load() {
		return audiocore.ErrSourceRunning
	}

	s.running.Store(true)
	if err := s.device.Start(); err != nil {
		s.running.Store(false)
		return s.audioError(err, "start_device")
	}
	s.log.Info("capture device started")
	return nil
}

// Stop pauses sample delivery. The device stays open.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return audiocore.ErrSourceNotOpen
	}
	if !s.running.Load() {
		return audiocore.ErrSourceNotRunning
	}

	s.running.Store(false)
	if err := s.device.Stop(); err != nil {
		return s.audioError(err, "stop_device")
	}
	s.log.Info("capture device stopped")
	return nil
}

// Close stops the device if needed and releases it. Closing an unopened source is a no-op.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return nil
	}

	if s.running.Swap(false) {
		_ = s.device.Stop()
	}
	s.device.Uninit()
	s.device = nil
	freeContext(s.mctx)
	s.mctx = nil
	s.log.Info("capture device closed")
	return nil
}

// onData runs on the audio thread. Samples arrive as f32 mono because the
// device was configured that way; miniaudio converts when the hardware differs.
func (s *Source) onData(_, input []byte, _ uint32) {
	if !s.running.Load() {
		return
	}
	s.sink.OnSamplesReceived(input)
}

// onDeviceStop fires for requested and unexpected stops alike.
func (s *Source) onDeviceStop() {
	if s.running.Load() {
		s.log.Warn("capture device stopped unexpectedly")
	}
}

func (s *Source) audioError(err error, operation string) error {
	return errors.New(err).
		Component(ComponentMalgo).
		Category(errors.CategoryAudioSource).
		Context("source_id", s.id).
		Context("device", s.cfg.Device).
		Context("operation", operation).
		Build()
}

func freeContext(mctx *malgo.AllocatedContext) {
	_ = mctx.Uninit()
	mctx.Free()
}
