// Package transcribe turns trimmed utterance audio into raw text. Three
// backends are supported: the in-process whisper.cpp bindings, a local
// whisper-server over HTTP, and Deepgram's hosted API.
package transcribe

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/voxterm/voxterm/internal/config"
)

// Transcriber converts a sealed utterance into raw text. Implementations
// apply the hallucination filter before returning, so callers may treat an
// empty string as silence.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16, sampleRate int, prompt string) (string, error)
	io.Closer
}

// New builds the transcription backend selected in the configuration.
func New(cfg *config.Config, logger zerolog.Logger) (Transcriber, error) {
	switch cfg.Backend {
	case "whisper":
		return NewWhisper(cfg.WhisperModelPath, cfg.Language, logger)
	case "whisper-server":
		return NewWhisperServer(cfg, logger), nil
	case "deepgram":
		return NewDeepgram(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown transcription backend %q", cfg.Backend)
	}
}
