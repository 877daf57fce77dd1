// voxterm is a push-to-talk dictation daemon for the terminal. It holds the
// microphone open, and on a hotkey press records an utterance, transcribes
// it with Whisper (local or hosted), rewrites spoken symbol phrases into
// shell syntax, and types the result into the focused window.
//
// Usage:
//
//	voxterm                start the daemon (default)
//	voxterm press          signal hotkey press to the running daemon
//	voxterm release        signal hotkey release
//	voxterm toggle         toggle recording on/off
//	voxterm history [-n N] show the last N dictations
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voxterm/voxterm/internal/audio"
	"github.com/voxterm/voxterm/internal/config"
	"github.com/voxterm/voxterm/internal/format"
	"github.com/voxterm/voxterm/internal/history"
	"github.com/voxterm/voxterm/internal/hotkey"
	"github.com/voxterm/voxterm/internal/inject"
	"github.com/voxterm/voxterm/internal/observability"
	"github.com/voxterm/voxterm/internal/session"
	"github.com/voxterm/voxterm/internal/sound"
	"github.com/voxterm/voxterm/internal/transcribe"
	"github.com/voxterm/voxterm/internal/vad"
)

const version = "1.0.0"

func main() {
	args := os.Args[1:]
	cmd := "daemon"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "daemon":
		observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
		if err := runDaemon(cfg, observability.GetLogger()); err != nil {
			observability.GetLogger().Fatal().Err(err).Msg("daemon failed")
		}
	case "press", "release", "toggle":
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := hotkey.Send(ctx, cfg.ControlSocket, cmd); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "history":
		if err := showHistory(cfg, args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\nusage: voxterm [daemon|press|release|toggle|history]\n", cmd)
		os.Exit(2)
	}
}

func showHistory(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	n := fs.Int("n", 20, "number of entries to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := history.NewLog(cfg.HistoryPath)
	if err != nil {
		return err
	}
	lines, err := log.Tail(*n)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Println("No history yet.")
		return nil
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func runDaemon(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("version", version).
		Str("backend", cfg.Backend).
		Str("inject_mode", cfg.InjectMode).
		Str("control_socket", cfg.ControlSocket).
		Msg("voxterm starting")

	// Phrase formatter with user corrections overlaid.
	corrections, err := format.LoadCorrections(cfg.CorrectionsPath)
	if err != nil {
		return err
	}
	table := format.Builtin().Merge(corrections.Rules())
	formatter := format.NewFormatter(table)
	logger.Info().Int("phrases", table.Len()).Msg("phrase table loaded")

	transcriber, err := transcribe.New(cfg, logger)
	if err != nil {
		return err
	}
	defer transcriber.Close()

	trimmer, err := vad.NewTrimmer(vad.EnergyScorer{}, vad.Config{
		SampleRate:  cfg.SampleRate,
		FrameMs:     cfg.VADFrameMs,
		Threshold:   cfg.VADThreshold,
		StartFrames: cfg.VADStartFrames,
		EndFrames:   cfg.VADEndFrames,
	})
	if err != nil {
		return err
	}

	injector := inject.New(cfg, logger)
	cues := sound.NewPlayer(cfg.SoundEnabled, logger)

	deps := session.Deps{
		Detector:    trimmer,
		Transcriber: transcriber,
		Formatter:   formatter,
		Injector:    injector,
		Notifier:    cues,
	}
	if cfg.HistoryEnabled {
		log, err := history.NewLog(cfg.HistoryPath)
		if err != nil {
			return err
		}
		deps.History = log
	}

	coordinator := session.NewCoordinator(session.Config{
		SampleRate:    cfg.SampleRate,
		MaxSession:    time.Duration(cfg.MaxSessionSeconds) * time.Second,
		MinSpeech:     time.Duration(cfg.MinSpeechMs) * time.Millisecond,
		InitialPrompt: cfg.InitialPrompt,
	}, deps, logger)

	capture, err := audio.NewCapture(cfg.SampleRate, cfg.CaptureDevice, coordinator.PushSamples)
	if err != nil {
		return err
	}
	defer capture.Close()
	if err := capture.Start(); err != nil {
		return err
	}

	source, err := hotkey.Listen(cfg.ControlSocket, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bridge hotkey events into the coordinator.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-source.Events():
				switch ev.Type {
				case hotkey.Press:
					coordinator.Press()
				case hotkey.Release:
					coordinator.Release()
				case hotkey.Toggle:
					coordinator.Toggle()
				}
			}
		}
	}()

	// Drain outcomes so the buffered channel never fills.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-coordinator.Outcomes():
			}
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsServer = startMetricsServer(cfg, logger)
	}

	cues.Ready()
	logger.Info().Msg("voxterm ready, waiting for hotkey")

	err = coordinator.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsServer.Shutdown(shutdownCtx)
	}

	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("voxterm stopped")
		return nil
	}
	return err
}

func startMetricsServer(cfg *config.Config, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", observability.HealthCheckHandler(version))
	mux.HandleFunc("/ready", observability.ReadinessHandler(version, map[string]observability.HealthCheckFunc{
		"control_socket": func(ctx context.Context) (bool, error) {
			if _, err := os.Stat(cfg.ControlSocket); err != nil {
				return false, err
			}
			return true, nil
		},
	}))

	server := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return server
}
