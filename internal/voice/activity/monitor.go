package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carevoice/carevoice/internal/voice/gate"
	"github.com/carevoice/carevoice/pkg/provider/mic"
)

// DefaultSampleInterval is the fixed sampling cadence. Sampling is driven by
// a timer, not by any rendering loop, so detector responsiveness does not
// depend on a frame rate.
const DefaultSampleInterval = 50 * time.Millisecond

// Callbacks are the edge notifications a Monitor delivers. Both are invoked
// on the monitor's sampling goroutine and must not block; nil callbacks are
// skipped.
type Callbacks struct {
	// OnVoiceStart fires when the level first crosses above threshold.
	OnVoiceStart func()

	// OnVoiceEnd fires after the level has stayed at/below threshold for the
	// full silence window.
	OnVoiceEnd func()
}

// Option is a functional option for configuring a Monitor.
type Option func(*Monitor)

// WithThreshold sets the activation threshold on the normalised level scale.
// Default: DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(m *Monitor) {
		if t > 0 {
			m.threshold = t
		}
	}
}

// WithSilenceWindow sets how long the level must stay at/below threshold
// before voice end fires. Default: DefaultSilenceWindow.
func WithSilenceWindow(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.silenceWindow = d
		}
	}
}

// WithSampleInterval sets the sampling tick. Default: DefaultSampleInterval.
func WithSampleInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// Monitor owns an open microphone stream and samples its level on a fixed
// tick, feeding a Detector and invoking edge callbacks. One Monitor maps to
// one continuous detection run; stopping it releases the device.
type Monitor struct {
	threshold     float64
	silenceWindow time.Duration
	interval      time.Duration

	cb       Callbacks
	stream   mic.Stream
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Start verifies an input device exists, opens a capture stream, and begins
// sampling. It returns gate.ErrDeviceUnavailable when no device is present.
//
// The returned Monitor must be stopped to release the microphone. If Start
// fails after the stream was opened, the stream is closed before returning —
// no error path leaks the device.
func Start(ctx context.Context, provider mic.Provider, cb Callbacks, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		threshold:     DefaultThreshold,
		silenceWindow: DefaultSilenceWindow,
		interval:      DefaultSampleInterval,
		cb:            cb,
		done:          make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}

	if !gate.New(provider).IsMicrophoneAvailable(ctx) {
		return nil, gate.ErrDeviceUnavailable
	}

	stream, err := provider.Open(ctx, mic.StreamConfig{})
	if err != nil {
		return nil, gate.ErrDeviceUnavailable
	}
	m.stream = stream

	m.wg.Add(2)
	go m.drain()
	go m.sample(ctx)

	slog.Debug("activity detection started",
		"threshold", m.threshold,
		"silence_window", m.silenceWindow,
		"interval", m.interval,
	)
	return m, nil
}

// Stop ends sampling, closes the capture stream, and releases the device.
// Safe to call multiple times; all calls after the first are no-ops.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		// Close the stream first so both goroutines unblock promptly.
		if err := m.stream.Close(); err != nil {
			slog.Warn("closing activity capture stream", "err", err)
		}
		m.wg.Wait()
		slog.Debug("activity detection stopped")
	})
}

// drain discards captured frames. The monitor only needs the polled level,
// but the backend pushes frames regardless and must not be blocked.
func (m *Monitor) drain() {
	defer m.wg.Done()
	for range m.stream.Frames() {
	}
}

// sample is the fixed-rate detection loop.
func (m *Monitor) sample(ctx context.Context) {
	defer m.wg.Done()

	det := NewDetector(m.threshold, m.silenceWindow)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			switch det.Observe(m.stream.Level(), now) {
			case EdgeVoiceStart:
				if m.cb.OnVoiceStart != nil {
					m.cb.OnVoiceStart()
				}
			case EdgeVoiceEnd:
				if m.cb.OnVoiceEnd != nil {
					m.cb.OnVoiceEnd()
				}
			}
		}
	}
}
