// Package gate implements the permission/device preflight that runs before
// any capture begins: is an input device present, and will the platform let
// us open it.
//
// The permission probe works by opening a minimal capture stream and closing
// it immediately — success implies permission. The probe deliberately reports
// only a boolean: denial, missing hardware, and OS-level blocks all look the
// same to downstream code, because the surrounding application's permission
// prompts are where specifics belong.
package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/carevoice/carevoice/pkg/provider/mic"
)

// Sentinel errors surfaced by engine preflight. They are defined here because
// this is the only layer that distinguishes permission from hardware; every
// downstream failure collapses into a provider error code.
var (
	// ErrDeviceUnavailable means no audio-input-capable device is present.
	ErrDeviceUnavailable = errors.New("gate: no audio input device available")

	// ErrPermissionDenied means a device exists but could not be opened.
	ErrPermissionDenied = errors.New("gate: microphone permission denied")
)

// Gate performs microphone preflight checks against an input device provider.
// It holds no state and is safe for concurrent use.
type Gate struct {
	provider mic.Provider
}

// New creates a Gate over provider.
func New(provider mic.Provider) *Gate {
	return &Gate{provider: provider}
}

// IsMicrophoneAvailable reports whether at least one audio-input-capable
// device is present, independent of permission state. Enumeration failures
// count as unavailable.
func (g *Gate) IsMicrophoneAvailable(ctx context.Context) bool {
	devices, err := g.provider.Devices(ctx)
	if err != nil {
		slog.Debug("device enumeration failed", "err", err)
		return false
	}
	return len(devices) > 0
}

// CheckMicrophonePermission attempts to open a minimal capture stream. The
// stream is closed before the call returns on every path — a permission probe
// must never hold the device.
func (g *Gate) CheckMicrophonePermission(ctx context.Context) bool {
	stream, err := g.provider.Open(ctx, mic.StreamConfig{})
	if err != nil {
		slog.Debug("permission probe failed", "err", err)
		return false
	}
	if err := stream.Close(); err != nil {
		slog.Warn("closing permission probe stream", "err", err)
	}
	return true
}

// Preflight runs both checks in the order the engine needs them and returns
// the first typed failure: ErrDeviceUnavailable if no device exists, then
// ErrPermissionDenied if one exists but cannot be opened.
func (g *Gate) Preflight(ctx context.Context) error {
	if !g.IsMicrophoneAvailable(ctx) {
		return ErrDeviceUnavailable
	}
	if !g.CheckMicrophonePermission(ctx) {
		return ErrPermissionDenied
	}
	return nil
}
