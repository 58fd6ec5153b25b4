// Package pulse provides the PulseAudio device backend: microphone capture
// implementing mic.Provider and PCM playback implementing audio.Player, both
// over the native PulseAudio protocol.
//
// Capture and playback each open their own connection to the sound server, so
// a recognition session and a synthesis utterance can run back to back without
// sharing stream state.
package pulse

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"github.com/carevoice/carevoice/pkg/audio"
	"github.com/carevoice/carevoice/pkg/provider/mic"
)

const (
	defaultSampleRate = 16000

	// frameSamples is the capture delivery granularity: 20 ms at 16 kHz.
	frameSamples = 320
)

// Backend talks to the local PulseAudio server. It implements both
// mic.Provider and audio.Player.
type Backend struct {
	// server is the PulseAudio server address; empty means the default.
	server string
}

var (
	_ mic.Provider = (*Backend)(nil)
	_ audio.Player = (*Backend)(nil)
)

// Option is a functional option for configuring the Backend.
type Option func(*Backend)

// WithServer sets an explicit PulseAudio server address instead of the
// environment default.
func WithServer(server string) Option {
	return func(b *Backend) {
		b.server = server
	}
}

// New creates a PulseAudio backend. No connection is made until a device
// operation runs.
func New(opts ...Option) *Backend {
	b := &Backend{}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Backend) connect() (*pulse.Client, error) {
	var opts []pulse.ClientOption
	if b.server != "" {
		opts = append(opts, pulse.ClientServerString(b.server))
	}
	c, err := pulse.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("pulse: connect: %w", err)
	}
	return c, nil
}

// Devices enumerates the capture sources the sound server currently exposes.
func (b *Backend) Devices(_ context.Context) ([]mic.Device, error) {
	c, err := b.connect()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	sources, err := c.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse: list sources: %w", err)
	}

	devices := make([]mic.Device, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, mic.Device{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

// Open starts capturing from the default source. The stream delivers 20 ms
// frames and tracks the instantaneous level for activity detection.
func (b *Backend) Open(_ context.Context, cfg mic.StreamConfig) (mic.Stream, error) {
	rate := cfg.SampleRate
	if rate == 0 {
		rate = defaultSampleRate
	}
	channels := cfg.Channels
	if channels == 0 {
		channels = 1
	}

	c, err := b.connect()
	if err != nil {
		return nil, err
	}

	s := &captureStream{
		client:     c,
		frames:     make(chan audio.Frame, 32),
		sampleRate: rate,
		channels:   channels,
		started:    time.Now(),
	}

	opts := []pulse.RecordOption{pulse.RecordSampleRate(rate)}
	if channels == 1 {
		opts = append(opts, pulse.RecordMono)
	} else {
		opts = append(opts, pulse.RecordStereo)
	}

	rec, err := c.NewRecord(pulse.Int16Writer(s.write), opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("pulse: open record stream: %w", err)
	}
	s.rec = rec
	rec.Start()
	return s, nil
}

// Play renders PCM chunks on the default sink, blocking until the channel is
// drained or ctx is cancelled. Cancellation discards buffered audio and
// returns nil.
func (b *Backend) Play(ctx context.Context, f audio.Format, pcm <-chan []byte) error {
	c, err := b.connect()
	if err != nil {
		return err
	}
	defer c.Close()

	reader := &chanReader{ctx: ctx, pcm: pcm}
	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(f.SampleRate),
		pulse.PlaybackLatency(0.1),
	}
	if f.Channels == 1 {
		opts = append(opts, pulse.PlaybackMono)
	} else {
		opts = append(opts, pulse.PlaybackStereo)
	}

	stream, err := c.NewPlayback(reader, opts...)
	if err != nil {
		return fmt.Errorf("pulse: open playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if ctx.Err() != nil {
		return nil
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("pulse: playback: %w", err)
	}
	return nil
}

// captureStream adapts a PulseAudio record stream to mic.Stream.
type captureStream struct {
	client     *pulse.Client
	rec        *pulse.RecordStream
	frames     chan audio.Frame
	sampleRate int
	channels   int
	started    time.Time

	// level holds the float64 bits of the most recent frame's amplitude.
	level atomic.Uint64

	mu      sync.Mutex
	pending []int16
	closed  bool
}

var _ mic.Stream = (*captureStream)(nil)

// write receives captured samples on the PulseAudio connection goroutine,
// accumulates whole frames, and forwards them. Frames are dropped rather than
// blocking the capture callback when the consumer falls behind.
func (s *captureStream) write(p []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}

	s.pending = append(s.pending, p...)
	chunk := frameSamples * s.channels
	for len(s.pending) >= chunk {
		data := samplesToBytes(s.pending[:chunk])
		s.pending = s.pending[chunk:]

		s.level.Store(math.Float64bits(audio.Level(data)))

		frame := audio.Frame{
			Data:       data,
			SampleRate: s.sampleRate,
			Channels:   s.channels,
			Timestamp:  time.Since(s.started),
		}
		select {
		case s.frames <- frame:
		default:
		}
	}
	return len(p), nil
}

// Frames returns the capture frame channel.
func (s *captureStream) Frames() <-chan audio.Frame {
	return s.frames
}

// Level returns the amplitude of the most recent frame.
func (s *captureStream) Level() float64 {
	return math.Float64frombits(s.level.Load())
}

// Close stops capture and releases the device.
func (s *captureStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.rec.Stop()
	s.client.Close()
	close(s.frames)
	return nil
}

// chanReader exposes a PCM chunk channel as a pulse.Reader. Read blocks for
// the next chunk and reports EOF when the channel closes or the context is
// cancelled.
type chanReader struct {
	ctx      context.Context
	pcm      <-chan []byte
	leftover []byte
}

var _ pulse.Reader = (*chanReader)(nil)

func (r *chanReader) Read(p []byte) (int, error) {
	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}
	select {
	case chunk, ok := <-r.pcm:
		if !ok {
			return 0, io.EOF
		}
		n := copy(p, chunk)
		if n < len(chunk) {
			r.leftover = chunk[n:]
		}
		return n, nil
	case <-r.ctx.Done():
		return 0, io.EOF
	}
}

func (r *chanReader) Format() byte {
	return proto.FormatInt16LE
}

// samplesToBytes converts interleaved int16 samples to little-endian bytes.
func samplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
