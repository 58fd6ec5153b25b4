package health

import (
	"context"
	"errors"
	"fmt"
)

// DevicePreflighter is the subset of the voice engine the readiness probe
// needs. *voice.Engine satisfies it.
type DevicePreflighter interface {
	Preflight(ctx context.Context) error
}

// Microphone returns a Checker that passes when an input device is present
// and openable. Probing opens and immediately closes a capture stream, so it
// must not run while a recognition session or activity monitor holds the
// device — readiness is checked at startup and between interactions.
func Microphone(engine DevicePreflighter) Checker {
	return Checker{
		Name: "microphone",
		Check: func(ctx context.Context) error {
			return engine.Preflight(ctx)
		},
	}
}

// Synthesis returns a Checker that passes when the TTS provider's voice
// catalog is reachable and non-empty. list should return the catalog size;
// callers typically wrap speaker.Voices.
func Synthesis(list func(ctx context.Context) (int, error)) Checker {
	return Checker{
		Name: "synthesis",
		Check: func(ctx context.Context) error {
			n, err := list(ctx)
			if err != nil {
				return fmt.Errorf("listing voices: %w", err)
			}
			if n == 0 {
				return errors.New("voice catalog is empty")
			}
			return nil
		},
	}
}
