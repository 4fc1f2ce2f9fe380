// Package wavfile replays a mono PCM WAV file into a SampleSink, optionally
// paced at the file's sample rate.
package wavfile

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/dualcapture/internal/audiocore"
	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
)

// ComponentWavFile identifies errors from the WAV file source.
const ComponentWavFile = "wavfile"

const wavFormatPCM = 1

// Config selects the file and delivery pacing.
type Config struct {
	Path        string
	Realtime    bool // pace chunks at the file's sample rate
	ChunkFrames int  // frames per delivery; 0 selects audiocore.DefaultFramesPerPeriod
}

// Source is a WAV file AudioSource.
type Source struct {
	id  string
	cfg Config
	log logger.Logger

	mu       sync.Mutex
	file     *os.File
	dec      *wav.Decoder
	sink     audiocore.SampleSink
	format   audiocore.AudioFormat
	bitDepth int
	parent   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	running   atomic.Bool
	delivered atomic.Uint64
	done      chan struct{}
	doneOnce  sync.Once
}

// GetLogger returns the wavfile module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("wavfile")
}

// NewSource creates an unopened WAV file source.
func NewSource(id string, cfg Config) *Source {
	if cfg.ChunkFrames <= 0 {
		cfg.ChunkFrames = audiocore.DefaultFramesPerPeriod
	}
	return &Source{
		id:   id,
		cfg:  cfg,
		log:  GetLogger().With(logger.String("source_id", id)),
		done: make(chan struct{}),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return s.id
}

// Name returns the file path.
func (s *Source) Name() string {
	return s.cfg.Path
}

// Open validates the file header. The returned format carries the file's sample rate.
func (s *Source) Open(ctx context.Context, sink audiocore.SampleSink) (audiocore.AudioFormat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return audiocore.AudioFormat{}, errors.Newf("source already open").
			Component(ComponentWavFile).
			Category(errors.CategoryState).
			Context("path", s.cfg.Path).
			Build()
	}

	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return audiocore.AudioFormat{}, errors.New(err).
			Component(ComponentWavFile).
			Category(errors.CategoryFileIO).
			Context("path", s.cfg.Path).
			Context("operation", "open").
			Build()
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		_ = f.Close()
		return audiocore.AudioFormat{}, s.formatError("not a valid WAV file", dec)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		_ = f.Close()
		return audiocore.AudioFormat{}, s.formatError("only integer PCM WAV files are supported", dec)
	}
	if dec.NumChans != audiocore.MonoChannels {
		_ = f.Close()
		return audiocore.AudioFormat{}, s.formatError("only mono WAV files are supported", dec)
	}
	switch dec.BitDepth {
	case 16, 24, 32:
	default:
		_ = f.Close()
		return audiocore.AudioFormat{}, s.formatError("unsupported bit depth", dec)
	}
	if err := dec.FwdToPCM(); err != nil {
		_ = f.Close()
		return audiocore.AudioFormat{}, errors.New(err).
			Component(ComponentWavFile).
			Category(errors.CategoryFileIO).
			Context("path", s.cfg.Path).
			Context("operation", "seek_pcm").
			Build()
	}

	s.file = f
	s.dec = dec
	s.sink = sink
	s.parent = ctx
	s.bitDepth = int(dec.BitDepth)
	s.format = audiocore.CaptureFormat(int(dec.SampleRate))

	s.log.Info("wav file opened",
		logger.String("path", s.cfg.Path),
		logger.Int("sample_rate", int(dec.SampleRate)),
		logger.Int("bit_depth", s.bitDepth),
		logger.Int("channels", int(dec.NumChans)),
		logger.Int("frames_per_period", s.cfg.ChunkFrames),
		logger.Bool("realtime", s.cfg.Realtime))

	return s.format, nil
}

// Start resumes delivery from the current file position.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return audiocore.ErrSourceNotOpen
	}
	if s.running.Load() {
		return audiocore.ErrSourceRunning
	}
	select {
	case <-s.done:
		return errors.Newf("wav file fully delivered").
			Component(ComponentWavFile).
			Category(errors.CategoryState).
			Context("path", s.cfg.Path).
			Build()
	default:
	}

	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	s.running.Store(true)
	s.wg.Add(1)
	go s.pump(ctx)
	return nil
}

// Stop pauses delivery and waits for the reader goroutine to exit.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return audiocore.ErrSourceNotOpen
	}
	if !s.running.Load() {
		return audiocore.ErrSourceNotRunning
	}
	s.halt()
	return nil
}

// Close stops delivery and closes the file. Closing an unopened source is a no-op.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.halt()
	err := s.file.Close()
	s.file = nil
	s.dec = nil
	if err != nil {
		return errors.New(err).
			Component(ComponentWavFile).
			Category(errors.CategoryFileIO).
			Context("path", s.cfg.Path).
			Context("operation", "close").
			Build()
	}
	return nil
}

// Done is closed once the whole file has been delivered or reading failed.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Delivered returns the number of samples passed to the sink so far.
func (s *Source) Delivered() uint64 {
	return s.delivered.Load()
}

// halt cancels the reader and waits for it. Callers hold s.mu.
func (s *Source) halt() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
	s.running.Store(false)
}

func (s *Source) pump(ctx context.Context) {
	defer s.wg.Done()

	frames := s.cfg.ChunkFrames
	buf := &audio.IntBuffer{
		Format:         s.dec.Format(),
		Data:           make([]int, frames),
		SourceBitDepth: s.bitDepth,
	}
	samples := make([]float32, frames)
	raw := make([]byte, 0, frames*audiocore.BytesPerSample)
	scale := 1 / float32(int64(1)<<(s.bitDepth-1))

	var ticker *time.Ticker
	if s.cfg.Realtime {
		period := time.Duration(frames) * time.Second / time.Duration(s.format.SampleRate)
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := s.dec.PCMBuffer(buf)
		if n > 0 {
			for i, v := range buf.Data[:n] {
				samples[i] = float32(v) * scale
			}
			raw = audiocore.AppendFloat32LE(raw[:0], samples[:n])
			s.sink.OnSamplesReceived(raw)
			s.delivered.Add(uint64(n))
		}
		if err != nil && !errors.Is(err, io.EOF) {
			s.log.Error("wav read failed",
				logger.String("path", s.cfg.Path),
				logger.Error(err))
			s.finish()
			return
		}
		if n == 0 || err != nil {
			s.finish()
			return
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func (s *Source) finish() {
	s.running.Store(false)
	s.doneOnce.Do(func() {
		close(s.done)
		s.log.Info("wav file delivered", logger.Uint64("samples", s.delivered.Load()))
	})
}

func (s *Source) formatError(reason string, dec *wav.Decoder) error {
	return errors.Newf("%w: %s", audiocore.ErrInvalidAudioFormat, reason).
		Component(ComponentWavFile).
		Category(errors.CategoryValidation).
		Context("path", s.cfg.Path).
		Context("wav_format", int(dec.WavAudioFormat)).
		Context("channels", int(dec.NumChans)).
		Context("bit_depth", int(dec.BitDepth)).
		Build()
}
