package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carevoice/carevoice/internal/voice/gate"
	"github.com/carevoice/carevoice/pkg/provider/mic"
	micmock "github.com/carevoice/carevoice/pkg/provider/mic/mock"
)

func testProvider() *micmock.Provider {
	return &micmock.Provider{DeviceList: []mic.Device{{ID: "default", Name: "Built-in Microphone"}}}
}

func TestStartFailsWithoutDevice(t *testing.T) {
	t.Parallel()

	_, err := Start(context.Background(), &micmock.Provider{}, Callbacks{})
	if !errors.Is(err, gate.ErrDeviceUnavailable) {
		t.Fatalf("Start() error = %v, want gate.ErrDeviceUnavailable", err)
	}
}

func TestStartFailsWhenOpenFails(t *testing.T) {
	t.Parallel()

	provider := testProvider()
	provider.OpenErr = errors.New("device is busy")
	_, err := Start(context.Background(), provider, Callbacks{})
	if !errors.Is(err, gate.ErrDeviceUnavailable) {
		t.Fatalf("Start() error = %v, want gate.ErrDeviceUnavailable", err)
	}
	if n := provider.OpenStreamCount(); n != 0 {
		t.Errorf("OpenStreamCount() = %d, want 0", n)
	}
}

func TestMonitorEmitsEdgesFromSampledLevels(t *testing.T) {
	t.Parallel()

	provider := testProvider()
	starts := make(chan struct{}, 8)
	ends := make(chan struct{}, 8)

	m, err := Start(context.Background(), provider, Callbacks{
		OnVoiceStart: func() { starts <- struct{}{} },
		OnVoiceEnd:   func() { ends <- struct{}{} },
	},
		WithThreshold(0.1),
		WithSilenceWindow(50*time.Millisecond),
		WithSampleInterval(5*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	stream := provider.OpenCalls[0].Stream
	stream.SetLevel(0.5)
	select {
	case <-starts:
	case <-time.After(2 * time.Second):
		t.Fatal("no voice start edge")
	}

	stream.SetLevel(0.0)
	select {
	case <-ends:
	case <-time.After(2 * time.Second):
		t.Fatal("no voice end edge")
	}

	// A second excursion works on the same monitor.
	stream.SetLevel(0.5)
	select {
	case <-starts:
	case <-time.After(2 * time.Second):
		t.Fatal("no second voice start edge")
	}
}

func TestStopReleasesDeviceAndIsIdempotent(t *testing.T) {
	t.Parallel()

	provider := testProvider()
	m, err := Start(context.Background(), provider, Callbacks{}, WithSampleInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := provider.OpenStreamCount(); n != 1 {
		t.Fatalf("OpenStreamCount() = %d, want 1 while monitoring", n)
	}

	m.Stop()
	m.Stop()
	if n := provider.OpenStreamCount(); n != 0 {
		t.Errorf("OpenStreamCount() = %d, want 0 after Stop", n)
	}
}

func TestContextCancelStopsSampling(t *testing.T) {
	t.Parallel()

	provider := testProvider()
	ctx, cancel := context.WithCancel(context.Background())
	starts := make(chan struct{}, 8)

	m, err := Start(ctx, provider, Callbacks{OnVoiceStart: func() { starts <- struct{}{} }},
		WithThreshold(0.1),
		WithSampleInterval(5*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	cancel()
	// Give the sampling loop time to observe cancellation, then prove no
	// further edges are delivered.
	time.Sleep(50 * time.Millisecond)
	provider.OpenCalls[0].Stream.SetLevel(0.9)
	select {
	case <-starts:
		t.Error("edge delivered after context cancellation")
	case <-time.After(100 * time.Millisecond):
	}
}
