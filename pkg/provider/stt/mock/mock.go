// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to verify that sessions are opened with the expected
// StreamConfig. Use Session to script the event stream a consumer should
// observe and to inspect the audio chunks that were sent.
//
// Example:
//
//	sess := mock.NewSession()
//	prov := &mock.Provider{Session: sess}
//	handle, _ := prov.StartStream(ctx, cfg)
//	sess.EmitResults(stt.Result{Alternatives: []stt.Alternative{{Text: "hello", Confidence: 0.9}}, IsFinal: true})
//	sess.EmitEnd()
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/carevoice/carevoice/pkg/provider/stt"
)

// StartStreamCall records a single invocation of Provider.StartStream.
type StartStreamCall struct {
	// Cfg is the StreamConfig passed to StartStream.
	Cfg stt.StreamConfig
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by StartStream. If nil,
	// StartStream returns a fresh NewSession().
	Session stt.SessionHandle

	// StartStreamErr, if non-nil, is returned as the error from StartStream.
	StartStreamErr error

	// StartStreamCalls records every call to StartStream in order.
	StartStreamCalls []StartStreamCall
}

// StartStream records the call and returns Session, StartStreamErr.
func (p *Provider) StartStream(_ context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartStreamCalls = append(p.StartStreamCalls, StartStreamCall{Cfg: cfg})
	if p.StartStreamErr != nil {
		return nil, p.StartStreamErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(), nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartStreamCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// SendAudioCall records a single invocation of Session.SendAudio.
type SendAudioCall struct {
	// Chunk is a copy of the bytes passed to SendAudio.
	Chunk []byte
}

// Session is a mock implementation of stt.SessionHandle. Events are scripted
// by the test through the Emit* methods; the session closes its event channel
// after EmitEnd or EmitError, matching the contract real providers follow.
type Session struct {
	mu sync.Mutex

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// CloseErr, if non-nil, is returned by the first Close call.
	CloseErr error

	// SendAudioCalls records every call to SendAudio in order.
	SendAudioCalls []SendAudioCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	events chan stt.Event
	ended  bool
	closed bool
}

// NewSession returns a Session with a buffered event channel ready for
// scripting.
func NewSession() *Session {
	return &Session{events: make(chan stt.Event, 64)}
}

// SendAudio records the call and returns SendAudioErr. Sending after Close
// returns an error, as with real providers.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("mock: session is closed")
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SendAudioCalls = append(s.SendAudioCalls, SendAudioCall{Chunk: cp})
	return s.SendAudioErr
}

// Events returns the scripted event channel.
func (s *Session) Events() <-chan stt.Event { return s.events }

// Close records the call. It does not end the event stream by itself — tests
// control that via EmitEnd/EmitError, mirroring the asynchronous cleanup of
// real sessions.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	if s.CloseCallCount == 1 {
		s.closed = true
		return s.CloseErr
	}
	return nil
}

// EmitResults delivers a result batch to the consumer.
func (s *Session) EmitResults(results ...stt.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.events <- stt.Event{Type: stt.EventResults, Results: results}
}

// EmitError delivers a terminal recognition error and closes the event stream.
func (s *Session) EmitError(code stt.ErrorCode, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.events <- stt.Event{Type: stt.EventError, Err: &stt.RecognitionError{Code: code, Message: msg}}
	close(s.events)
}

// EmitEnd delivers the end-of-capture event and closes the event stream.
func (s *Session) EmitEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.events <- stt.Event{Type: stt.EventEnd}
	close(s.events)
}

// SendAudioCount reports how many SendAudio calls were recorded. Thread-safe.
func (s *Session) SendAudioCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SendAudioCalls)
}

// ResetCalls clears all recorded call history. Thread-safe.
func (s *Session) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendAudioCalls = nil
	s.CloseCallCount = 0
}

// Ensure Session implements stt.SessionHandle at compile time.
var _ stt.SessionHandle = (*Session)(nil)
