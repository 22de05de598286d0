package devices

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/verbalabs/verba/pkg/audio"
	"github.com/verbalabs/verba/pkg/errorsx"
)

// WAVSource replays a WAV file as if it were live microphone input,
// resampled to the capture rate and paced in real time.
type WAVSource struct {
	path     string
	rate     int
	realtime bool
	loop     bool

	samples []float32
	frameCh chan []float32

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	closed  bool
}

type WAVSourceConfig struct {
	Path string
	Rate int
	// Realtime paces frames at the capture rate; disable to drain as fast as
	// the consumer allows.
	Realtime bool
	Loop     bool
}

func NewWAVSource(cfg WAVSourceConfig) (*WAVSource, error) {
	if cfg.Rate <= 0 {
		cfg.Rate = audio.CaptureRate
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonDeviceOpen)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errorsx.New(errorsx.ReasonDeviceOpen, fmt.Sprintf("not a wav file: %s", cfg.Path))
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonDeviceOpen)
	}

	samples := monoFloats(buf, int(dec.BitDepth))
	if int(dec.SampleRate) != cfg.Rate {
		samples = audio.Resample(samples, int(dec.SampleRate), cfg.Rate)
	}

	return &WAVSource{
		path:     cfg.Path,
		rate:     cfg.Rate,
		realtime: cfg.Realtime,
		loop:     cfg.Loop,
		samples:  samples,
		frameCh:  make(chan []float32, 16),
	}, nil
}

func (s *WAVSource) Name() string { return "wav" }
func (s *WAVSource) Rate() int    { return s.rate }

func (s *WAVSource) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.closed || s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()
	go s.run(ctx)
	return nil
}

// Stop cancels the replay goroutine and waits for it to exit. Only the
// goroutine closes the frame channel, so a Stop racing a send is safe.
func (s *WAVSource) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	started := s.started
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-done
	} else {
		close(s.frameCh)
	}
	return nil
}

func (s *WAVSource) Frames() <-chan []float32 { return s.frameCh }

func (s *WAVSource) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.frameCh)
	frameDur := time.Duration(audio.FrameSamples) * time.Second / time.Duration(s.rate)
	for {
		for off := 0; off < len(s.samples); off += audio.FrameSamples {
			end := off + audio.FrameSamples
			if end > len(s.samples) {
				end = len(s.samples)
			}
			frame := make([]float32, audio.FrameSamples)
			copy(frame, s.samples[off:end])
			select {
			case <-ctx.Done():
				return
			case s.frameCh <- frame:
			}
			if s.realtime {
				select {
				case <-ctx.Done():
					return
				case <-time.After(frameDur):
				}
			}
		}
		if !s.loop {
			return
		}
	}
}

func monoFloats(buf *goaudio.IntBuffer, bitDepth int) []float32 {
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	ch := buf.Format.NumChannels
	if ch <= 0 {
		ch = 1
	}
	out := make([]float32, len(buf.Data)/ch)
	for i := range out {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(buf.Data[i*ch+c]) / scale
		}
		out[i] = sum / float32(ch)
	}
	return out
}

// WAVSink records everything played to a WAV file. It doubles as the
// record_audio artifact writer.
type WAVSink struct {
	path string
	rate int

	mu      sync.Mutex
	file    *os.File
	enc     *wav.Encoder
	stopped bool
}

func NewWAVSink(path string, rate int) *WAVSink {
	if rate <= 0 {
		rate = audio.PlaybackRate
	}
	return &WAVSink{path: path, rate: rate}
}

func (s *WAVSink) Name() string { return "wav" }
func (s *WAVSink) Rate() int    { return s.rate }

func (s *WAVSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Create(s.path)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonDeviceOpen)
	}
	s.file = f
	s.enc = wav.NewEncoder(f, s.rate, 16, 1, 1)
	s.stopped = false
	return nil
}

func (s *WAVSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	var err error
	if s.enc != nil {
		err = s.enc.Close()
		s.enc = nil
	}
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
		s.file = nil
	}
	return err
}

func (s *WAVSink) WriteSamples(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.enc == nil {
		return nil
	}
	data := make([]int, len(samples))
	for i, v := range audio.Float32ToInt16(samples) {
		data[i] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: s.rate},
		SourceBitDepth: 16,
	}
	if err := s.enc.Write(buf); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonPlaybackSink)
	}
	return nil
}
