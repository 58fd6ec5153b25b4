package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/carevoice/carevoice/pkg/provider/mic"
	micmock "github.com/carevoice/carevoice/pkg/provider/mic/mock"
)

func TestIsMicrophoneAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider *micmock.Provider
		want     bool
	}{
		{
			"device present",
			&micmock.Provider{DeviceList: []mic.Device{{ID: "default", Name: "Built-in Microphone"}}},
			true,
		},
		{"no devices", &micmock.Provider{}, false},
		{"enumeration fails", &micmock.Provider{DevicesErr: errors.New("backend down")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New(tt.provider)
			if got := g.IsMicrophoneAvailable(context.Background()); got != tt.want {
				t.Errorf("IsMicrophoneAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckMicrophonePermissionNeverHoldsTheDevice(t *testing.T) {
	t.Parallel()

	provider := &micmock.Provider{DeviceList: []mic.Device{{ID: "default"}}}
	g := New(provider)

	if !g.CheckMicrophonePermission(context.Background()) {
		t.Fatal("CheckMicrophonePermission() = false with an openable device")
	}
	if n := provider.OpenStreamCount(); n != 0 {
		t.Errorf("OpenStreamCount() = %d after probe, want 0", n)
	}
}

func TestCheckMicrophonePermissionDenied(t *testing.T) {
	t.Parallel()

	provider := &micmock.Provider{
		DeviceList: []mic.Device{{ID: "default"}},
		OpenErr:    errors.New("permission denied by OS"),
	}
	if New(provider).CheckMicrophonePermission(context.Background()) {
		t.Error("CheckMicrophonePermission() = true, want false when open fails")
	}
}

func TestPreflightOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider *micmock.Provider
		wantErr  error
	}{
		{
			"all clear",
			&micmock.Provider{DeviceList: []mic.Device{{ID: "default"}}},
			nil,
		},
		{
			"no device reported before permission",
			&micmock.Provider{OpenErr: errors.New("would also fail")},
			ErrDeviceUnavailable,
		},
		{
			"device present but blocked",
			&micmock.Provider{DeviceList: []mic.Device{{ID: "default"}}, OpenErr: errors.New("blocked")},
			ErrPermissionDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := New(tt.provider).Preflight(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Preflight() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
