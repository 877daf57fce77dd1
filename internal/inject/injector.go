// Package inject delivers formatted text into the focused window using the
// platform's keyboard and clipboard tools: wtype on Wayland, xdotool and
// xclip on X11, pbcopy and osascript on macOS.
package inject

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxterm/voxterm/internal/config"
)

// Mode selects the delivery mechanism.
const (
	ModeKeystroke = "keystroke"
	ModePaste     = "paste"
)

// runner executes one external tool. Swapped out in tests.
type runner func(ctx context.Context, stdin string, name string, args ...string) (string, error)

func execRunner(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = bytes.NewBufferString(stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("%s: %w: %s", name, err, out.String())
	}
	return out.String(), nil
}

// Injector types or pastes text into the active window. Paste mode saves
// and restores the user's clipboard around the paste chord.
type Injector struct {
	mode           string
	autoEnter      bool
	keystrokeDelay time.Duration
	platform       string
	wayland        bool
	run            runner
	logger         zerolog.Logger
}

// New builds an injector from configuration.
func New(cfg *config.Config, logger zerolog.Logger) *Injector {
	return &Injector{
		mode:           cfg.InjectMode,
		autoEnter:      cfg.AutoEnter,
		keystrokeDelay: time.Duration(cfg.KeystrokeDelayMs) * time.Millisecond,
		platform:       runtime.GOOS,
		wayland:        os.Getenv("WAYLAND_DISPLAY") != "",
		run:            execRunner,
		logger:         logger.With().Str("component", "inject").Logger(),
	}
}

// Inject delivers text to the focused window, then presses Enter when
// auto-enter is on.
func (in *Injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	var err error
	switch in.mode {
	case ModePaste:
		err = in.paste(ctx, text)
	default:
		err = in.typeText(ctx, text)
	}
	if err != nil {
		return err
	}

	if in.autoEnter {
		time.Sleep(50 * time.Millisecond)
		return in.pressEnter(ctx)
	}
	return nil
}

func (in *Injector) typeText(ctx context.Context, text string) error {
	in.logger.Debug().Int("chars", len(text)).Msg("type-injecting")

	switch {
	case in.platform == "darwin":
		script := fmt.Sprintf("tell application %q to keystroke %s", "System Events", appleScriptString(text))
		_, err := in.run(ctx, "", "osascript", "-e", script)
		return err
	case in.wayland:
		_, err := in.run(ctx, "", "wtype", "-d", strconv.Itoa(int(in.keystrokeDelay.Milliseconds())), "--", text)
		return err
	default:
		_, err := in.run(ctx, "", "xdotool", "type", "--delay", strconv.Itoa(int(in.keystrokeDelay.Milliseconds())), "--", text)
		return err
	}
}

func (in *Injector) paste(ctx context.Context, text string) error {
	in.logger.Debug().Int("chars", len(text)).Msg("paste-injecting")

	saved, savedOK := in.readClipboard(ctx)

	if err := in.writeClipboard(ctx, text); err != nil {
		in.logger.Warn().Err(err).Msg("clipboard write failed, falling back to keystrokes")
		return in.typeText(ctx, text)
	}
	time.Sleep(20 * time.Millisecond)

	if err := in.pasteChord(ctx); err != nil {
		return err
	}

	// Give the application time to read the clipboard before restoring.
	time.Sleep(50 * time.Millisecond)
	if savedOK {
		if err := in.writeClipboard(ctx, saved); err != nil {
			in.logger.Warn().Err(err).Msg("clipboard restore failed")
		}
	}
	return nil
}

func (in *Injector) pasteChord(ctx context.Context) error {
	switch {
	case in.platform == "darwin":
		_, err := in.run(ctx, "", "osascript", "-e", `tell application "System Events" to keystroke "v" using command down`)
		return err
	case in.wayland:
		// Terminals paste with Ctrl+Shift+V.
		_, err := in.run(ctx, "", "wtype", "-M", "ctrl", "-M", "shift", "-k", "v", "-m", "shift", "-m", "ctrl")
		return err
	default:
		_, err := in.run(ctx, "", "xdotool", "key", "--clearmodifiers", "ctrl+shift+v")
		return err
	}
}

func (in *Injector) pressEnter(ctx context.Context) error {
	switch {
	case in.platform == "darwin":
		_, err := in.run(ctx, "", "osascript", "-e", `tell application "System Events" to key code 36`)
		return err
	case in.wayland:
		_, err := in.run(ctx, "", "wtype", "-k", "Return")
		return err
	default:
		_, err := in.run(ctx, "", "xdotool", "key", "Return")
		return err
	}
}

func (in *Injector) readClipboard(ctx context.Context) (string, bool) {
	for _, cmd := range in.clipboardReadCommands() {
		out, err := in.run(ctx, "", cmd[0], cmd[1:]...)
		if err == nil {
			return out, true
		}
	}
	return "", false
}

func (in *Injector) writeClipboard(ctx context.Context, text string) error {
	var lastErr error
	for _, cmd := range in.clipboardWriteCommands() {
		if _, err := in.run(ctx, text, cmd[0], cmd[1:]...); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no clipboard tool available")
	}
	return lastErr
}

func (in *Injector) clipboardReadCommands() [][]string {
	if in.platform == "darwin" {
		return [][]string{{"pbpaste"}}
	}
	var cmds [][]string
	if in.wayland {
		cmds = append(cmds, []string{"wl-paste", "--no-newline"})
	}
	cmds = append(cmds,
		[]string{"xclip", "-selection", "clipboard", "-o"},
		[]string{"xsel", "--clipboard", "--output"},
	)
	return cmds
}

func (in *Injector) clipboardWriteCommands() [][]string {
	if in.platform == "darwin" {
		return [][]string{{"pbcopy"}}
	}
	var cmds [][]string
	if in.wayland {
		cmds = append(cmds, []string{"wl-copy"})
	}
	cmds = append(cmds,
		[]string{"xclip", "-selection", "clipboard"},
		[]string{"xsel", "--clipboard", "--input"},
	)
	return cmds
}

// appleScriptString quotes text for embedding in an osascript expression.
func appleScriptString(s string) string {
	quoted := strconv.Quote(s)
	return quoted
}
