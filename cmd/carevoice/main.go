// Command carevoice is the main entry point for the CareVoice voice
// interaction server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	gopt "google.golang.org/api/option"

	"github.com/carevoice/carevoice/internal/config"
	"github.com/carevoice/carevoice/internal/health"
	"github.com/carevoice/carevoice/internal/observe"
	"github.com/carevoice/carevoice/internal/transcript"
	"github.com/carevoice/carevoice/internal/voice"
	"github.com/carevoice/carevoice/internal/voice/activity"
	"github.com/carevoice/carevoice/internal/voice/session"
	"github.com/carevoice/carevoice/internal/voice/speaker"
	pulseaudio "github.com/carevoice/carevoice/pkg/audio/pulse"
	"github.com/carevoice/carevoice/pkg/provider/stt"
	"github.com/carevoice/carevoice/pkg/provider/stt/deepgram"
	"github.com/carevoice/carevoice/pkg/provider/stt/googlespeech"
	"github.com/carevoice/carevoice/pkg/provider/tts"
	"github.com/carevoice/carevoice/pkg/provider/tts/elevenlabs"
	"github.com/carevoice/carevoice/pkg/provider/tts/openaispeech"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so the config watcher can retune it live.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "carevoice: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "carevoice: %v\n", err)
		}
		return 1
	}
	level.Set(slogLevel(cfg.Server.LogLevel))

	slog.Info("carevoice starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownOtel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "carevoice",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerAudioBackends(reg)

	backend, err := buildAudio(cfg, reg)
	if err != nil {
		slog.Error("failed to build audio backend", "err", err)
		return 1
	}

	registerSpeechProviders(ctx, reg, backend, cfg.Engine.Speech.VoiceID)
	sttProv, ttsProv, err := buildSpeech(cfg, reg)
	if err != nil {
		slog.Error("failed to build speech providers", "err", err)
		return 1
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	engine := voice.New(sttProv, ttsProv, backend.Mic, engineOptions(cfg, metrics)...)

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, updated *config.Config) {
		applyReload(level, engine, old, updated)
	})
	if err != nil {
		slog.Warn("config watcher unavailable; live reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	healthHandler(engine).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", addr)
		var err error
		if cfg.Server.TLS != nil {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return interactionLoop(gctx, engine)
	})

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerAudioBackends wires the built-in audio device backends into reg.
func registerAudioBackends(reg *config.Registry) {
	reg.RegisterAudio("pulse", func(entry config.ProviderEntry) (config.AudioBackend, error) {
		var opts []pulseaudio.Option
		if server := optString(entry.Options, "server"); server != "" {
			opts = append(opts, pulseaudio.WithServer(server))
		}
		b := pulseaudio.New(opts...)
		return config.AudioBackend{Mic: b, Player: b}, nil
	})
}

// registerSpeechProviders wires the built-in STT and TTS provider factories
// into reg. TTS factories render through the audio backend's player, so they
// are only registered when one exists.
func registerSpeechProviders(ctx context.Context, reg *config.Registry, backend config.AudioBackend, voiceID string) {
	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("google", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []gopt.ClientOption
		if credFile := optString(entry.Options, "credentials_file"); credFile != "" {
			opts = append(opts, gopt.WithCredentialsFile(credFile))
		}
		if entry.BaseURL != "" {
			opts = append(opts, gopt.WithEndpoint(entry.BaseURL))
		}
		return googlespeech.New(ctx, opts...)
	})

	if backend.Player == nil {
		slog.Warn("no audio backend configured — synthesis providers disabled")
		return
	}

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voiceID != "" {
			opts = append(opts, elevenlabs.WithDefaultVoice(voiceID))
		}
		return elevenlabs.New(entry.APIKey, backend.Player, opts...)
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []openaispeech.Option
		if entry.Model != "" {
			opts = append(opts, openaispeech.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, openaispeech.WithBaseURL(entry.BaseURL))
		}
		if voiceID != "" {
			opts = append(opts, openaispeech.WithDefaultVoice(voiceID))
		}
		return openaispeech.New(entry.APIKey, backend.Player, opts...)
	})
}

// buildAudio instantiates the configured audio backend, if any.
func buildAudio(cfg *config.Config, reg *config.Registry) (config.AudioBackend, error) {
	name := cfg.Providers.Audio.Name
	if name == "" {
		return config.AudioBackend{}, nil
	}
	backend, err := reg.CreateAudio(cfg.Providers.Audio)
	if err != nil {
		return config.AudioBackend{}, fmt.Errorf("create audio backend %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "audio", "name", name)
	return backend, nil
}

// buildSpeech instantiates the configured STT and TTS providers. A provider
// whose factory is missing is skipped with a log line rather than failing
// startup — the engine reports the capability as absent.
func buildSpeech(cfg *config.Config, reg *config.Registry) (stt.Provider, tts.Provider, error) {
	var sttProv stt.Provider
	var ttsProv tts.Provider

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("stt provider not available — recognition disabled", "name", name)
		} else if err != nil {
			return nil, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		} else {
			sttProv = p
			slog.Info("provider created", "kind", "stt", "name", name)
		}
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("tts provider not available — synthesis disabled", "name", name)
		} else if err != nil {
			return nil, nil, fmt.Errorf("create tts provider %q: %w", name, err)
		} else {
			ttsProv = p
			slog.Info("provider created", "kind", "tts", "name", name)
		}
	}

	return sttProv, ttsProv, nil
}

// engineOptions maps the engine section of the config onto engine options.
func engineOptions(cfg *config.Config, metrics *observe.Metrics) []voice.Option {
	language := cfg.Engine.Language
	if language == "" {
		language = "en-US"
	}

	opts := []voice.Option{
		voice.WithMetrics(metrics),
		voice.WithStreamConfig(stt.StreamConfig{
			SampleRate: 16000,
			Channels:   1,
			Language:   language,
			Continuous: true,
		}),
		voice.WithSpeakerDefaults(
			cfg.Engine.Speech.Rate,
			cfg.Engine.Speech.Pitch,
			cfg.Engine.Speech.Volume,
			language,
		),
	}
	if len(cfg.Engine.Vocabulary) > 0 {
		opts = append(opts, voice.WithCorrector(transcript.NewVocabularyCorrector(cfg.Engine.Vocabulary)))
	}
	if actOpts := activityOptions(cfg.Engine.Activity); len(actOpts) > 0 {
		opts = append(opts, voice.WithActivityOptions(actOpts...))
	}
	return opts
}

// activityOptions maps the activity config block onto detector options,
// keeping defaults for zero values.
func activityOptions(cfg config.ActivityConfig) []activity.Option {
	var opts []activity.Option
	if cfg.Threshold > 0 {
		opts = append(opts, activity.WithThreshold(cfg.Threshold))
	}
	if cfg.SilenceWindow > 0 {
		opts = append(opts, activity.WithSilenceWindow(cfg.SilenceWindow))
	}
	if cfg.SampleInterval > 0 {
		opts = append(opts, activity.WithSampleInterval(cfg.SampleInterval))
	}
	return opts
}

// ── Hot reload ────────────────────────────────────────────────────────────────

// applyReload applies the hot-reloadable parts of a config change to the
// running process. Provider changes require a restart and are ignored by
// design of [config.Diff].
func applyReload(level *slog.LevelVar, engine *voice.Engine, old, updated *config.Config) {
	d := config.Diff(old, updated)
	if !d.Any() {
		return
	}

	if d.LogLevelChanged {
		level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.SpeechChanged {
		engine.SetSpeakerDefaults(
			updated.Engine.Speech.Rate,
			updated.Engine.Speech.Pitch,
			updated.Engine.Speech.Volume,
			updated.Engine.Language,
		)
		slog.Info("speech defaults retuned",
			"rate", updated.Engine.Speech.Rate,
			"volume", updated.Engine.Speech.Volume,
		)
	}
	if d.ActivityChanged {
		engine.SetActivityOptions(activityOptions(updated.Engine.Activity)...)
		slog.Info("activity detector retuned",
			"threshold", updated.Engine.Activity.Threshold,
			"silence_window", updated.Engine.Activity.SilenceWindow,
		)
	}
	if d.VocabularyChanged {
		if len(updated.Engine.Vocabulary) > 0 {
			engine.SetCorrector(transcript.NewVocabularyCorrector(updated.Engine.Vocabulary))
		} else {
			engine.SetCorrector(nil)
		}
		slog.Info("correction vocabulary updated", "words", len(updated.Engine.Vocabulary))
	}
}

// ── Health ────────────────────────────────────────────────────────────────────

// healthHandler assembles the readiness checkers the configured capabilities
// support.
func healthHandler(engine *voice.Engine) *health.Handler {
	var checkers []health.Checker
	caps := engine.Capabilities()
	if caps.Recognition {
		checkers = append(checkers, health.Microphone(engine))
	}
	if caps.Synthesis {
		checkers = append(checkers, health.Synthesis(func(ctx context.Context) (int, error) {
			voices, err := engine.Voices(ctx)
			return len(voices), err
		}))
	}
	return health.New(checkers...)
}

// ── Interaction loop ──────────────────────────────────────────────────────────

// interactionLoop drives the hands-free wake cycle: the activity monitor
// watches for speech, speech hands the microphone to recognition, and the end
// of the recognition run hands it back. On recognition errors the loop speaks
// the plain-language explanation before listening again.
func interactionLoop(ctx context.Context, engine *voice.Engine) error {
	caps := engine.Capabilities()
	if !caps.Recognition {
		slog.Info("recognition unavailable — interaction loop disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	states := make(chan session.State, 16)
	unsubscribe := engine.Subscribe(func(st session.State) {
		select {
		case states <- st:
		default:
		}
	})
	defer unsubscribe()

	voiceStart := make(chan struct{}, 1)
	watchForVoice := func() error {
		return engine.StartActivityDetection(ctx, activity.Callbacks{
			OnVoiceStart: func() {
				select {
				case voiceStart <- struct{}{}:
				default:
				}
			},
		})
	}

	if err := watchForVoice(); err != nil {
		return fmt.Errorf("start activity detection: %w", err)
	}
	defer engine.StopActivityDetection()
	defer engine.StopListening()

	listening := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-voiceStart:
			if listening {
				continue
			}
			engine.StopActivityDetection()
			engine.StopSpeaking()
			if err := engine.StartListening(ctx); err != nil {
				slog.Warn("could not start listening", "err", err)
				if err := watchForVoice(); err != nil {
					return fmt.Errorf("resume activity detection: %w", err)
				}
				continue
			}
			listening = true

		case st := <-states:
			if !listening || st.Phase != session.Idle {
				continue
			}
			// Terminal event: the run ended and released the microphone.
			listening = false

			if st.Err != nil {
				slog.Info("recognition ended with error", "code", st.Err.Code)
				if caps.Synthesis {
					if _, err := engine.Speak(ctx, voice.UserMessage(st.Err.Code), speaker.Options{}); err != nil {
						slog.Warn("could not speak error message", "err", err)
					}
				}
			} else if st.Committed != "" {
				slog.Info("transcript captured",
					"text", st.Committed,
					"confidence", st.Confidence,
				)
			}

			if err := watchForVoice(); err != nil {
				return fmt.Errorf("resume activity detection: %w", err)
			}
		}
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
