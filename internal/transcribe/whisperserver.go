package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxterm/voxterm/internal/audio"
	"github.com/voxterm/voxterm/internal/config"
	"github.com/voxterm/voxterm/internal/resilience"
)

// WhisperServer talks to a running whisper-server binary, which exposes
// batch inference at POST /inference. Each utterance is encoded as a WAV
// file and submitted as multipart/form-data. Transient network failures are
// retried with exponential backoff; the server is local, so attempts are
// cheap.
type WhisperServer struct {
	serverURL  string
	language   string
	prompt     string
	httpClient *http.Client
	retryCfg   *resilience.RetryConfig
	logger     zerolog.Logger
}

// NewWhisperServer builds a client for the configured server URL.
func NewWhisperServer(cfg *config.Config, logger zerolog.Logger) *WhisperServer {
	return &WhisperServer{
		serverURL:  cfg.WhisperServerURL,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryCfg: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		logger: logger.With().Str("component", "whisper_server").Logger(),
	}
}

// Transcribe submits the utterance and returns the filtered transcript.
func (w *WhisperServer) Transcribe(ctx context.Context, samples []int16, sampleRate int, prompt string) (string, error) {
	var text string
	err := resilience.Retry(ctx, func() error {
		var err error
		text, err = w.infer(ctx, samples, sampleRate, prompt)
		return err
	}, w.retryCfg, resilience.IsRetryableNetworkError)
	if err != nil {
		return "", err
	}

	return filterHallucinations(text), nil
}

func (w *WhisperServer) infer(ctx context.Context, samples []int16, sampleRate int, prompt string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	wav, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("write wav data: %w", err)
	}

	if w.language != "" {
		if err := mw.WriteField("language", w.language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if prompt != "" {
		if err := mw.WriteField("prompt", prompt); err != nil {
			return "", fmt.Errorf("write prompt field: %w", err)
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("write response_format field: %w", err)
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	endpoint := w.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper-server request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("whisper-server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("parse inference response: %w", err)
	}

	return result.Text, nil
}

// Close is a no-op; the client holds no persistent connection.
func (w *WhisperServer) Close() error { return nil }
