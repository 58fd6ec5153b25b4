package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":   {"deepgram", "google"},
	"tts":   {"elevenlabs", "openai"},
	"audio": {"pulse"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)

	// Capability availability warnings. Missing providers are not errors:
	// the engine reports the capability as unsupported and keeps running with
	// whatever remains.
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; speech recognition will be unavailable")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; speech output will be unavailable")
	}
	if cfg.Providers.Audio.Name == "" && cfg.Providers.STT.Name != "" {
		slog.Warn("providers.stt is configured but providers.audio is not; recognition needs a capture backend")
	}

	// Speech parameters
	speech := cfg.Engine.Speech
	if speech.Rate != 0 && (speech.Rate < 0.5 || speech.Rate > 2.0) {
		errs = append(errs, fmt.Errorf("engine.speech.rate %.2f is out of range [0.5, 2.0]", speech.Rate))
	}
	if speech.Pitch != 0 && (speech.Pitch < 0 || speech.Pitch > 2.0) {
		errs = append(errs, fmt.Errorf("engine.speech.pitch %.2f is out of range [0.0, 2.0]", speech.Pitch))
	}
	if speech.Volume < 0 || speech.Volume > 1.0 {
		errs = append(errs, fmt.Errorf("engine.speech.volume %.2f is out of range [0.0, 1.0]", speech.Volume))
	}

	// Activity detection
	activity := cfg.Engine.Activity
	if activity.Threshold < 0 || activity.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("engine.activity.threshold %.3f is out of range [0.0, 1.0)", activity.Threshold))
	}
	if activity.SilenceWindow < 0 {
		errs = append(errs, fmt.Errorf("engine.activity.silence_window %s must not be negative", activity.SilenceWindow))
	}
	if activity.SampleInterval < 0 {
		errs = append(errs, fmt.Errorf("engine.activity.sample_interval %s must not be negative", activity.SampleInterval))
	}
	if activity.SampleInterval > 0 && activity.SilenceWindow > 0 && activity.SampleInterval > activity.SilenceWindow {
		errs = append(errs, fmt.Errorf("engine.activity.sample_interval %s is longer than silence_window %s; voice end could never fire on time",
			activity.SampleInterval, activity.SilenceWindow))
	}

	// Vocabulary duplicate detection
	seen := make(map[string]int, len(cfg.Engine.Vocabulary))
	for i, word := range cfg.Engine.Vocabulary {
		if word == "" {
			errs = append(errs, fmt.Errorf("engine.vocabulary[%d] is empty", i))
			continue
		}
		if prev, ok := seen[word]; ok {
			errs = append(errs, fmt.Errorf("engine.vocabulary[%d] %q is a duplicate of engine.vocabulary[%d]", i, word, prev))
		}
		seen[word] = i
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
