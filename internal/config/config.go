package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voxterm daemon
type Config struct {
	// Control socket that receives press/release events from the external
	// hotkey binding (e.g. a compositor keybind running "voxterm press" /
	// "voxterm release"). Empty means $XDG_RUNTIME_DIR/voxterm.sock,
	// falling back to the system temp dir.
	ControlSocket string `envconfig:"CONTROL_SOCKET" default:""`

	// Audio capture configuration
	SampleRate        int    `envconfig:"SAMPLE_RATE" default:"16000"`      // Whisper's native rate, mono
	MaxSessionSeconds int    `envconfig:"MAX_SESSION_SECONDS" default:"60"` // Safety cap on one recording
	MinSpeechMs       int    `envconfig:"MIN_SPEECH_MS" default:"250"`      // Shorter speech intervals are discarded
	CaptureDevice     string `envconfig:"CAPTURE_DEVICE" default:""`        // Empty selects the system default microphone

	// Voice activity detection
	VADThreshold   float64 `envconfig:"VAD_THRESHOLD" default:"0.5"`  // Speech probability threshold
	VADFrameMs     int     `envconfig:"VAD_FRAME_MS" default:"30"`    // Analysis window size in milliseconds
	VADStartFrames int     `envconfig:"VAD_START_FRAMES" default:"3"` // Consecutive speech frames before speech start
	VADEndFrames   int     `envconfig:"VAD_END_FRAMES" default:"10"`  // Consecutive silence frames before speech end

	// Transcription backend: whisper (native whisper.cpp bindings),
	// whisper-server (whisper.cpp HTTP server), or deepgram
	Backend          string `envconfig:"BACKEND" default:"whisper"`
	WhisperModelPath string `envconfig:"WHISPER_MODEL_PATH" default:""`
	WhisperServerURL string `envconfig:"WHISPER_SERVER_URL" default:"http://localhost:8080"`
	Language         string `envconfig:"LANGUAGE" default:"en"`

	// Initial prompt biasing the model toward CLI vocabulary
	InitialPrompt string `envconfig:"INITIAL_PROMPT" default:"ls cd git commit push pull sudo apt pip npm docker kubectl grep sed awk cat echo chmod chown mkdir rm -rf --help -la python node bash zsh ssh scp curl wget tar zip unzip | > >> < && || ; $ ~ / ./ ../"`

	// Deepgram STT API configuration (only required for the deepgram backend)
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`

	// Injection configuration
	InjectMode       string `envconfig:"INJECT_MODE" default:"keystroke"` // keystroke or paste
	AutoEnter        bool   `envconfig:"AUTO_ENTER" default:"false"`      // Press Enter after injecting
	KeystrokeDelayMs int    `envconfig:"KEYSTROKE_DELAY_MS" default:"8"`  // Delay between simulated keystrokes

	// Formatter corrections file (YAML). Empty means
	// ~/.config/voxterm/corrections.yaml.
	CorrectionsPath string `envconfig:"CORRECTIONS_PATH" default:""`

	// History log of transcriptions. Empty path means
	// ~/.local/share/voxterm/history.log.
	HistoryEnabled bool   `envconfig:"HISTORY_ENABLED" default:"true"`
	HistoryPath    string `envconfig:"HISTORY_PATH" default:""`

	// Audio feedback cues
	SoundEnabled bool `envconfig:"SOUND_ENABLED" default:"true"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`              // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"true"`             // Pretty console logs (this is a desktop daemon)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`       // Enable Prometheus metrics endpoint
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:"127.0.0.1:9621"` // Listen address for /metrics, /health, /ready
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if one exists, then processes the
// environment, then validates and resolves defaulted paths.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("VOXTERM", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.resolvePaths()

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case "whisper":
		if c.WhisperModelPath == "" {
			return fmt.Errorf("VOXTERM_WHISPER_MODEL_PATH is required for the whisper backend")
		}
	case "whisper-server":
		if c.WhisperServerURL == "" {
			return fmt.Errorf("VOXTERM_WHISPER_SERVER_URL is required for the whisper-server backend")
		}
	case "deepgram":
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("VOXTERM_DEEPGRAM_API_KEY is required for the deepgram backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (supported: whisper, whisper-server, deepgram)", c.Backend)
	}

	switch c.InjectMode {
	case "keystroke", "paste":
	default:
		return fmt.Errorf("unknown inject mode %q (supported: keystroke, paste)", c.InjectMode)
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.MaxSessionSeconds <= 0 {
		return fmt.Errorf("max session seconds must be positive, got %d", c.MaxSessionSeconds)
	}
	if c.VADThreshold < 0 || c.VADThreshold > 1 {
		return fmt.Errorf("VAD threshold must be between 0 and 1, got %f", c.VADThreshold)
	}
	if c.VADFrameMs <= 0 {
		return fmt.Errorf("VAD frame size must be positive, got %d", c.VADFrameMs)
	}
	if c.VADStartFrames < 1 || c.VADEndFrames < 1 {
		return fmt.Errorf("VAD hysteresis frame counts must be at least 1")
	}

	return nil
}

// resolvePaths fills in the defaulted file locations that envconfig tags
// cannot express because they depend on the runtime environment.
func (c *Config) resolvePaths() {
	if c.ControlSocket == "" {
		dir := os.Getenv("XDG_RUNTIME_DIR")
		if dir == "" {
			dir = os.TempDir()
		}
		c.ControlSocket = filepath.Join(dir, "voxterm.sock")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	if c.CorrectionsPath == "" {
		c.CorrectionsPath = filepath.Join(home, ".config", "voxterm", "corrections.yaml")
	}
	if c.HistoryPath == "" {
		c.HistoryPath = filepath.Join(home, ".local", "share", "voxterm", "history.log")
	}
}
