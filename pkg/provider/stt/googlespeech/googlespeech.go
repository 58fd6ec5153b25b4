// Package googlespeech implements the stt.Provider interface for Google Cloud
// Speech-to-Text using the v1 streaming API.
//
// Authentication follows the standard Google application-default-credentials
// chain (GOOGLE_APPLICATION_CREDENTIALS or the metadata server); additional
// client options can be passed through New for tests or custom endpoints.
package googlespeech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/carevoice/carevoice/pkg/provider/stt"
)

const (
	defaultLanguage   = "en-US"
	defaultSampleRate = 16000
)

// Provider implements stt.Provider backed by Google Cloud Speech-to-Text.
type Provider struct {
	client *speech.Client
	logger *slog.Logger
}

var _ stt.Provider = (*Provider)(nil)

// New creates a Google Cloud Speech-to-Text provider. The underlying gRPC
// client is shared across all sessions; call Close when the provider is no
// longer needed.
func New(ctx context.Context, opts ...option.ClientOption) (*Provider, error) {
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("googlespeech: create client: %w", err)
	}
	return &Provider{
		client: client,
		logger: slog.Default().With("component", "stt.googlespeech"),
	}, nil
}

// Close releases the underlying gRPC client. Sessions opened before Close may
// fail with a network error.
func (p *Provider) Close() error {
	return p.client.Close()
}

// StartStream opens a streaming recognition session. The configuration message
// is sent before the handle is returned, so the session is ready for audio
// immediately.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	stream, err := p.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, fmt.Errorf("googlespeech: open stream: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: buildStreamingConfig(cfg),
		},
	}); err != nil {
		return nil, fmt.Errorf("googlespeech: send config: %w", err)
	}

	s := &session{
		stream: stream,
		events: make(chan stt.Event, 64),
		logger: p.logger,
	}
	go s.recvLoop(ctx)
	return s, nil
}

func buildStreamingConfig(cfg stt.StreamConfig) *speechpb.StreamingRecognitionConfig {
	lang := cfg.Language
	if lang == "" {
		lang = defaultLanguage
	}
	rate := cfg.SampleRate
	if rate == 0 {
		rate = defaultSampleRate
	}
	channels := cfg.Channels
	if channels == 0 {
		channels = 1
	}
	maxAlts := cfg.MaxAlternatives
	if maxAlts < 1 {
		maxAlts = 1
	}

	return &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   int32(rate),
			LanguageCode:      lang,
			AudioChannelCount: int32(channels),
			MaxAlternatives:   int32(maxAlts),
		},
		InterimResults:  true,
		SingleUtterance: !cfg.Continuous,
	}
}

// session adapts one Speech_StreamingRecognizeClient to stt.SessionHandle.
type session struct {
	stream speechpb.Speech_StreamingRecognizeClient
	events chan stt.Event
	logger *slog.Logger

	sendMu    sync.Mutex
	sendDone  bool
	closeOnce sync.Once
}

var _ stt.SessionHandle = (*session)(nil)

// SendAudio forwards a chunk of PCM audio to the recognition stream.
func (s *session) SendAudio(chunk []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendDone {
		return errors.New("googlespeech: session closed")
	}
	err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	})
	if err != nil {
		// Send errors surface the real cause on Recv; mark the send side
		// dead and let recvLoop deliver the terminal event.
		s.sendDone = true
		return fmt.Errorf("googlespeech: send audio: %w", err)
	}
	return nil
}

// Events returns the ordered event stream for this session.
func (s *session) Events() <-chan stt.Event {
	return s.events
}

// Close half-closes the stream so the service flushes remaining results and
// ends the session. The final EventEnd arrives on Events once the flush
// completes.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		s.sendDone = true
		err = s.stream.CloseSend()
		s.sendMu.Unlock()
	})
	return err
}

// recvLoop owns the events channel: it translates streaming responses into
// events and closes the channel after the terminal event.
func (s *session) recvLoop(ctx context.Context) {
	defer close(s.events)
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			ev := terminalEvent(ctx, err)
			if ev.Type == stt.EventError {
				s.logger.Error("recognition stream failed", "code", ev.Err.Code, "error", err)
			}
			s.events <- ev
			return
		}
		if resp.Error != nil {
			st := status.FromProto(resp.Error)
			s.logger.Error("recognition service error", "grpc_code", st.Code().String())
			s.events <- stt.Event{
				Type: stt.EventError,
				Err:  mapStatus(st.Code(), st.Message()),
			}
			return
		}
		if ev, ok := convertResponse(resp); ok {
			s.events <- ev
		}
	}
}

// terminalEvent maps a stream Recv error to the session's final event. Clean
// shutdown (EOF, local cancellation, or the service's stream duration limit)
// ends the session normally; everything else is a typed error.
func terminalEvent(ctx context.Context, err error) stt.Event {
	if errors.Is(err, io.EOF) || ctx.Err() != nil {
		return stt.Event{Type: stt.EventEnd}
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Canceled, codes.OutOfRange:
			return stt.Event{Type: stt.EventEnd}
		default:
			return stt.Event{Type: stt.EventError, Err: mapStatus(st.Code(), st.Message())}
		}
	}
	return stt.Event{
		Type: stt.EventError,
		Err:  &stt.RecognitionError{Code: stt.CodeNetwork, Message: err.Error()},
	}
}

// mapStatus collapses a gRPC status code into the recognition error taxonomy.
func mapStatus(code codes.Code, msg string) *stt.RecognitionError {
	rec := &stt.RecognitionError{Message: msg}
	switch code {
	case codes.PermissionDenied, codes.Unauthenticated:
		rec.Code = stt.CodeNotAllowed
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		rec.Code = stt.CodeNetwork
	default:
		rec.Code = stt.CodeOther
	}
	if rec.Message == "" {
		rec.Message = "speech recognition failed (" + code.String() + ")"
	}
	return rec
}

// convertResponse maps a streaming response to an EventResults event. Returns
// false when the response carries nothing the transcript layer can use.
func convertResponse(resp *speechpb.StreamingRecognizeResponse) (stt.Event, bool) {
	results := make([]stt.Result, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		alts := make([]stt.Alternative, 0, len(r.GetAlternatives()))
		for _, a := range r.GetAlternatives() {
			alts = append(alts, stt.Alternative{
				Text:       a.GetTranscript(),
				Confidence: float64(a.GetConfidence()),
			})
		}
		if len(alts) == 0 {
			continue
		}
		// The service repeats empty interim hypotheses while the speaker
		// pauses; dropping them keeps tentative text stable.
		if !r.GetIsFinal() && strings.TrimSpace(alts[0].Text) == "" {
			continue
		}
		results = append(results, stt.Result{
			Alternatives: alts,
			IsFinal:      r.GetIsFinal(),
		})
	}
	if len(results) == 0 {
		return stt.Event{}, false
	}
	return stt.Event{Type: stt.EventResults, Results: results}, true
}
