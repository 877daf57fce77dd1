package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/voxterm/voxterm/internal/audio"
	"github.com/voxterm/voxterm/internal/config"
	"github.com/voxterm/voxterm/internal/observability"
	"github.com/voxterm/voxterm/internal/resilience"
)

// deepgramCallback implements the LiveMessageCallback interface. It embeds
// the default handler and overrides only the transcript delivery.
type deepgramCallback struct {
	*websocketv1api.DefaultCallbackHandler
	onFinal func(text string)
}

func (c *deepgramCallback) Message(msg *msginterfaces.MessageResponse) error {
	if msg == nil || !msg.IsFinal || len(msg.Channel.Alternatives) == 0 {
		return nil
	}
	if text := msg.Channel.Alternatives[0].Transcript; text != "" {
		c.onFinal(text)
	}
	return nil
}

// Deepgram sends each utterance through Deepgram's streaming API as one
// short-lived session: write the PCM, send the close frame, collect the
// final transcripts. A circuit breaker stops hammering the API while it is
// down, failing sessions fast instead.
type Deepgram struct {
	apiKey   string
	model    string
	language string
	breaker  *resilience.CircuitBreaker
	logger   zerolog.Logger
}

// NewDeepgram builds the hosted backend from configuration.
func NewDeepgram(cfg *config.Config, logger zerolog.Logger) *Deepgram {
	return &Deepgram{
		apiKey:   cfg.DeepgramAPIKey,
		model:    cfg.DeepgramModel,
		language: cfg.Language,
		breaker: resilience.NewCircuitBreaker(
			"deepgram",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: logger.With().Str("component", "deepgram").Logger(),
	}
}

// Transcribe runs one session under circuit breaker protection.
func (d *Deepgram) Transcribe(ctx context.Context, samples []int16, sampleRate int, prompt string) (string, error) {
	var text string
	err := d.breaker.Call(func() error {
		var err error
		text, err = d.run(ctx, samples, sampleRate)
		return err
	})
	observability.UpdateCircuitBreakerState("deepgram", int(d.breaker.State()))
	if err != nil {
		return "", err
	}

	return filterHallucinations(text), nil
}

func (d *Deepgram) run(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	finals := make(chan string, 16)

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:      d.model,
		Language:   d.language,
		Punctuate:  true,
		Encoding:   "linear16",
		Channels:   1,
		SampleRate: sampleRate,
	}

	callback := &deepgramCallback{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		onFinal: func(text string) {
			select {
			case finals <- text:
			default:
				d.logger.Warn().Msg("final transcript dropped, channel full")
			}
		},
	}

	client, err := listenClient.NewWSUsingCallback(ctx, d.apiKey, nil, tOptions, callback)
	if err != nil {
		return "", fmt.Errorf("create deepgram client: %w", err)
	}

	// Stream in 100ms chunks; 16-bit mono.
	pcm := audio.SamplesToBytes(samples)
	chunkBytes := sampleRate / 10 * 2
	for off := 0; off < len(pcm); off += chunkBytes {
		end := off + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if _, err := client.Write(pcm[off:end]); err != nil {
			client.Finish()
			return "", fmt.Errorf("send audio to deepgram: %w", err)
		}
	}
	// Finish sends the close frame; Deepgram flushes remaining finals in
	// response.
	client.Finish()

	return d.collect(ctx, finals)
}

// collect gathers final transcripts after the close frame has been sent,
// until the stream goes quiet or the deadline hits. An utterance that yields
// no finals resolves as an empty transcript, not an error.
func (d *Deepgram) collect(ctx context.Context, finals <-chan string) (string, error) {
	var parts []string
	deadline := time.NewTimer(10 * time.Second)
	defer deadline.Stop()
	quiet := time.NewTimer(2 * time.Second)
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case text := <-finals:
			parts = append(parts, text)
			if !quiet.Stop() {
				select {
				case <-quiet.C:
				default:
				}
			}
			quiet.Reset(800 * time.Millisecond)
		case <-quiet.C:
			return strings.Join(parts, " "), nil
		case <-deadline.C:
			return strings.Join(parts, " "), nil
		}
	}
}

// Close is a no-op; sessions are per-utterance.
func (d *Deepgram) Close() error { return nil }
