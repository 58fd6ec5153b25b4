// Package mock provides test doubles for the mic package interfaces.
//
// Provider tracks how many streams are currently open, which lets tests
// assert the engine's scoped acquisition/release discipline (a permission
// check must never leave a stream behind; every stop path must release the
// device).
package mock

import (
	"context"
	"sync"

	"github.com/carevoice/carevoice/pkg/audio"
	"github.com/carevoice/carevoice/pkg/provider/mic"
)

// OpenCall records a single invocation of Provider.Open.
type OpenCall struct {
	// Cfg is the StreamConfig passed to Open.
	Cfg mic.StreamConfig

	// Stream is the stream that Open returned for this call.
	Stream *Stream
}

// Provider is a mock implementation of mic.Provider.
type Provider struct {
	mu sync.Mutex

	// DeviceList is returned by Devices.
	DeviceList []mic.Device

	// DevicesErr, if non-nil, is returned by Devices.
	DevicesErr error

	// OpenErr, if non-nil, is returned by every Open call.
	OpenErr error

	// OpenCalls records every call to Open in order.
	OpenCalls []OpenCall

	// DevicesCallCount is the number of times Devices was called.
	DevicesCallCount int

	openStreams int
}

// Devices returns DeviceList, DevicesErr.
func (p *Provider) Devices(_ context.Context) ([]mic.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DevicesCallCount++
	if p.DevicesErr != nil {
		return nil, p.DevicesErr
	}
	return p.DeviceList, nil
}

// Open records the call and returns a fresh *Stream wired back to the
// provider's open-stream count.
func (p *Provider) Open(_ context.Context, cfg mic.StreamConfig) (mic.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.OpenErr != nil {
		p.OpenCalls = append(p.OpenCalls, OpenCall{Cfg: cfg})
		return nil, p.OpenErr
	}
	s := newStream(p)
	p.OpenCalls = append(p.OpenCalls, OpenCall{Cfg: cfg, Stream: s})
	p.openStreams++
	return s, nil
}

// OpenStreamCount reports how many streams are open right now. Tests use it
// to prove that acquisition is scoped.
func (p *Provider) OpenStreamCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openStreams
}

// Reset clears all recorded calls. Open streams are not affected.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCalls = nil
	p.DevicesCallCount = 0
}

func (p *Provider) streamClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openStreams--
}

// Ensure Provider implements mic.Provider at compile time.
var _ mic.Provider = (*Provider)(nil)

// Stream is a mock implementation of mic.Stream. Tests feed it frames with
// PushFrame and set the polled level with SetLevel.
type Stream struct {
	mu       sync.Mutex
	provider *Provider
	frames   chan audio.Frame
	level    float64
	closed   bool

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

func newStream(p *Provider) *Stream {
	return &Stream{provider: p, frames: make(chan audio.Frame, 64)}
}

// Frames returns the frame channel.
func (s *Stream) Frames() <-chan audio.Frame { return s.frames }

// Level returns the value last set with SetLevel.
func (s *Stream) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetLevel sets the value returned by Level.
func (s *Stream) SetLevel(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = v
}

// PushFrame delivers a frame to the consumer. No-op after Close.
func (s *Stream) PushFrame(f audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.frames <- f
}

// Close records the call, closes the frame channel once, and decrements the
// provider's open-stream count.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.frames)
	if s.provider != nil {
		s.provider.streamClosed()
	}
	return nil
}

// Closed reports whether the stream has been closed.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Ensure Stream implements mic.Stream at compile time.
var _ mic.Stream = (*Stream)(nil)
