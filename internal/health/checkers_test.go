package health

import (
	"context"
	"errors"
	"testing"
)

type stubPreflighter struct {
	err error
}

func (s stubPreflighter) Preflight(_ context.Context) error { return s.err }

func TestMicrophoneChecker(t *testing.T) {
	t.Parallel()

	if err := Microphone(stubPreflighter{}).Check(context.Background()); err != nil {
		t.Errorf("Check() error = %v, want nil when preflight passes", err)
	}

	wantErr := errors.New("gate: no audio input device available")
	c := Microphone(stubPreflighter{err: wantErr})
	if err := c.Check(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Check() error = %v, want the preflight error", err)
	}
	if c.Name != "microphone" {
		t.Errorf("Name = %q, want %q", c.Name, "microphone")
	}
}

func TestSynthesisChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		count   int
		listErr error
		wantOK  bool
	}{
		{"catalog reachable", 3, nil, true},
		{"catalog empty", 0, nil, false},
		{"catalog unreachable", 0, errors.New("http 503"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := Synthesis(func(_ context.Context) (int, error) { return tt.count, tt.listErr })
			err := c.Check(context.Background())
			if (err == nil) != tt.wantOK {
				t.Errorf("Check() error = %v, wantOK = %v", err, tt.wantOK)
			}
		})
	}
}
