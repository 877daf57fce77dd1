// Package hotkey turns external key events into press/release signals for
// the session coordinator. The daemon owns no global keyboard hook; the
// desktop environment binds a key to `voxterm press` / `voxterm release`
// (or `toggle`), which write single-line commands to a unix control socket.
package hotkey

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType is the kind of hotkey transition.
type EventType int

const (
	Press EventType = iota
	Release
	Toggle
)

func (t EventType) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	case Toggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// Event is one hotkey transition.
type Event struct {
	Type EventType
}

// Source delivers hotkey events.
type Source interface {
	Events() <-chan Event
	Close() error
}

// SocketSource listens on a unix socket for newline-delimited commands:
// "press", "release", "toggle". Key-repeat storms are absorbed here: a
// second press while the key is held is dropped before it reaches the
// coordinator.
type SocketSource struct {
	path        string
	listener    net.Listener
	events      chan Event
	logger      zerolog.Logger
	idleTimeout time.Duration

	mu   sync.Mutex
	held bool

	closeOnce sync.Once
	done      chan struct{}
}

// Listen binds the control socket, removing a stale socket file from a
// previous run first.
func Listen(path string, logger zerolog.Logger) (*SocketSource, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale control socket %s: %w", path, err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on control socket %s: %w", path, err)
	}

	s := &SocketSource{
		path:        path,
		listener:    listener,
		events:      make(chan Event, 8),
		logger:      logger.With().Str("component", "hotkey").Logger(),
		idleTimeout: 5 * time.Minute,
		done:        make(chan struct{}),
	}
	go s.acceptLoop()

	s.logger.Info().Str("socket", path).Msg("control socket listening")
	return s, nil
}

// Events returns the hotkey event stream.
func (s *SocketSource) Events() <-chan Event {
	return s.events
}

func (s *SocketSource) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn().Err(err).Msg("control socket accept failed")
				continue
			}
		}
		go s.handleConn(conn)
	}
}

// handleConn serves one connection. Keybinding daemons may hold a single
// connection open across many presses, so the read deadline is refreshed
// before every line rather than set once; only an idle connection is reaped.
func (s *SocketSource) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		if !scanner.Scan() {
			return
		}
		cmd := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if cmd == "" {
			continue
		}
		if cmd != "press" && cmd != "release" && cmd != "toggle" {
			s.logger.Warn().Str("command", cmd).Msg("unknown control command")
			fmt.Fprintln(conn, "err unknown command")
			continue
		}
		if ev, emit := s.translate(cmd); emit {
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
		fmt.Fprintln(conn, "ok")
	}
}

// translate maps a command to an event, deduplicating key-repeat: a press
// while already held (or a release while not) is absorbed.
func (s *SocketSource) translate(cmd string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case "press":
		if s.held {
			return Event{}, false
		}
		s.held = true
		return Event{Type: Press}, true
	case "release":
		if !s.held {
			return Event{}, false
		}
		s.held = false
		return Event{Type: Release}, true
	case "toggle":
		s.held = !s.held
		return Event{Type: Toggle}, true
	}
	return Event{}, false
}

// Close shuts the socket down and removes the socket file.
func (s *SocketSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.listener.Close()
		os.Remove(s.path)
	})
	return err
}

// Send delivers one command to a running daemon's control socket. Used by
// the CLI subcommands.
func Send(ctx context.Context, path, cmd string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("connect to control socket %s (is the daemon running?): %w", path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(2 * time.Second))
	}

	if _, err := fmt.Fprintln(conn, cmd); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read reply for %q: %w", cmd, err)
	}
	if strings.HasPrefix(reply, "err") {
		return fmt.Errorf("daemon rejected %q: %s", cmd, strings.TrimSpace(reply))
	}
	return nil
}
