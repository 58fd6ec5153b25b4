// Package config provides the configuration schema, loader, and provider
// registry for the CareVoice voice interaction server.
package config

import "time"

// LogLevel controls log verbosity for the CareVoice server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for CareVoice.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds network and logging settings for the CareVoice server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// EngineConfig tunes the voice engine: recognition language, speech output
// parameters, activity detection, and the correction vocabulary.
type EngineConfig struct {
	// Language is the BCP 47 tag used for recognition and voice selection
	// (e.g., "en-US"). Defaults to "en-US" when empty.
	Language string `yaml:"language"`

	// Speech configures synthesis output parameters.
	Speech SpeechConfig `yaml:"speech"`

	// Activity configures voice activity detection.
	Activity ActivityConfig `yaml:"activity"`

	// Vocabulary lists words final transcripts are corrected against —
	// typically medication names and family member names the user says often.
	Vocabulary []string `yaml:"vocabulary"`
}

// SpeechConfig specifies synthesis output parameters. Zero values fall back
// to the engine defaults (rate 0.8, pitch 1.0, volume 0.9), which are tuned
// for elderly listeners.
type SpeechConfig struct {
	// Rate adjusts speaking rate in the range [0.5, 2.0].
	Rate float64 `yaml:"rate"`

	// Pitch adjusts voice pitch in the range [0.0, 2.0].
	Pitch float64 `yaml:"pitch"`

	// Volume sets output volume in the range [0.0, 1.0].
	Volume float64 `yaml:"volume"`

	// VoiceID pins a provider-specific voice. When empty, a voice is chosen
	// by language from the provider's catalog.
	VoiceID string `yaml:"voice_id"`
}

// ActivityConfig tunes the voice activity detector. Zero values fall back to
// the detector defaults (threshold 0.01, silence window 1s, interval 50ms).
type ActivityConfig struct {
	// Threshold is the activation level on the normalised [0, 1] scale.
	Threshold float64 `yaml:"threshold"`

	// SilenceWindow is how long the level must stay at or below threshold
	// before voice end fires.
	SilenceWindow time.Duration `yaml:"silence_window"`

	// SampleInterval is the fixed cadence at which the level is sampled.
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// ProvidersConfig declares which provider implementation to use for each
// engine concern. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT   ProviderEntry `yaml:"stt"`
	TTS   ProviderEntry `yaml:"tts"`
	Audio ProviderEntry `yaml:"audio"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "deepgram",
	// "elevenlabs", "pulse").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "nova-2",
	// "eleven_turbo_v2").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}
