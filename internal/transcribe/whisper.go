package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/voxterm/voxterm/internal/audio"
)

// Whisper runs inference in-process through the whisper.cpp CGO bindings.
// The whisper.cpp static library (libwhisper.a) and headers must be
// available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
//
// The model is loaded once at startup. Contexts are not thread-safe, so a
// mutex serializes inference; with one utterance in flight at a time this
// never contends.
type Whisper struct {
	mu       sync.Mutex
	model    whisperlib.Model
	language string
	logger   zerolog.Logger
}

// NewWhisper loads the model from modelPath.
func NewWhisper(modelPath, language string, logger zerolog.Logger) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("whisper model path must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", modelPath, err)
	}

	return &Whisper{
		model:    model,
		language: language,
		logger:   logger.With().Str("component", "whisper").Logger(),
	}, nil
}

// Transcribe runs batch inference over the utterance.
func (w *Whisper) Transcribe(ctx context.Context, samples []int16, sampleRate int, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}

	if w.language != "" {
		if err := wctx.SetLanguage(w.language); err != nil {
			w.logger.Warn().Err(err).Str("language", w.language).Msg("set language failed, using default")
		}
	}
	if prompt != "" {
		wctx.SetInitialPrompt(prompt)
	}

	if err := wctx.Process(audio.SamplesToFloat32(samples), nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper inference: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read whisper segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return filterHallucinations(strings.Join(parts, " ")), nil
}

// Close releases the model.
func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}
