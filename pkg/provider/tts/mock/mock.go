// Package mock provides test doubles for the tts package interfaces.
//
// Use Provider to script the voice catalogue and inspect Speak calls. Each
// Speak returns a *Handle whose completion the test drives explicitly with
// Complete or Fail; Cancel resolves the handle with tts.ErrInterrupted the
// way a real provider does.
package mock

import (
	"context"
	"sync"

	"github.com/carevoice/carevoice/pkg/provider/tts"
)

// SpeakCall records a single invocation of Provider.Speak.
type SpeakCall struct {
	// Utterance is the value passed to Speak.
	Utterance tts.Utterance

	// Handle is the handle that Speak returned for this call.
	Handle *Handle
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Voices is returned by ListVoices.
	Voices []tts.Voice

	// ListVoicesErr, if non-nil, is returned by ListVoices.
	ListVoicesErr error

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []SpeakCall

	// ListVoicesCallCount is the number of times ListVoices was called.
	ListVoicesCallCount int
}

// Speak records the call and returns a fresh, unresolved *Handle.
func (p *Provider) Speak(_ context.Context, u tts.Utterance) (tts.SpeechHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SpeakErr != nil {
		p.SpeakCalls = append(p.SpeakCalls, SpeakCall{Utterance: u})
		return nil, p.SpeakErr
	}
	h := NewHandle()
	p.SpeakCalls = append(p.SpeakCalls, SpeakCall{Utterance: u, Handle: h})
	return h, nil
}

// ListVoices returns Voices, ListVoicesErr.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListVoicesCallCount++
	if p.ListVoicesErr != nil {
		return nil, p.ListVoicesErr
	}
	return p.Voices, nil
}

// LastHandle returns the handle of the most recent Speak call, or nil.
func (p *Provider) LastHandle() *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.SpeakCalls) == 0 {
		return nil
	}
	return p.SpeakCalls[len(p.SpeakCalls)-1].Handle
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SpeakCalls = nil
	p.ListVoicesCallCount = 0
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)

// Handle is a mock implementation of tts.SpeechHandle. Its outcome is driven
// by the test (or by Cancel).
type Handle struct {
	mu   sync.Mutex
	done chan struct{}
	err  error

	// CancelCallCount is the number of times Cancel was called.
	CancelCallCount int
}

// NewHandle returns an unresolved Handle.
func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Done returns the completion channel.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the recorded outcome.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Cancel resolves the handle with tts.ErrInterrupted on first call.
func (h *Handle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.CancelCallCount++
	h.resolveLocked(tts.ErrInterrupted)
}

// Complete resolves the handle successfully, as if playback finished.
func (h *Handle) Complete() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resolveLocked(nil)
}

// Fail resolves the handle with a *tts.SynthesisError carrying code and msg.
func (h *Handle) Fail(code, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resolveLocked(&tts.SynthesisError{Code: code, Message: msg})
}

// Resolved reports whether the handle has already completed.
func (h *Handle) Resolved() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Handle) resolveLocked(err error) {
	select {
	case <-h.done:
		return // already resolved; first outcome wins
	default:
	}
	h.err = err
	close(h.done)
}

// Ensure Handle implements tts.SpeechHandle at compile time.
var _ tts.SpeechHandle = (*Handle)(nil)
