package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voxterm/voxterm/internal/audio"
	"github.com/voxterm/voxterm/internal/observability"
	"github.com/voxterm/voxterm/internal/vad"
)

// Transcriber converts voiced samples into raw text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16, sampleRate int, prompt string) (string, error)
}

// Injector delivers formatted text into the focused application.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Formatter rewrites a raw transcript into injectable text.
type Formatter interface {
	Format(raw string) string
}

// Detector locates the voiced span inside a sealed utterance.
type Detector interface {
	Detect(samples []int16) vad.Interval
}

// HistorySink records completed dictations. May be nil when history is
// disabled.
type HistorySink interface {
	Append(raw, formatted string, took time.Duration) error
}

// Notifier plays audible cues for session edges. May be nil when sound is
// disabled.
type Notifier interface {
	RecordingStarted()
	RecordingStopped()
	Failure()
}

// Config carries the session-relevant knobs.
type Config struct {
	SampleRate    int
	MaxSession    time.Duration
	MinSpeech     time.Duration
	InitialPrompt string
}

// Deps bundles the pipeline collaborators.
type Deps struct {
	Detector    Detector
	Transcriber Transcriber
	Formatter   Formatter
	Injector    Injector
	History     HistorySink
	Notifier    Notifier
}

type eventKind int

const (
	evPress eventKind = iota
	evRelease
	evToggle
)

// Coordinator owns the push-to-talk state machine. All errors from the
// pipeline terminate inside it as an Outcome; nothing propagates past Run
// except context cancellation.
type Coordinator struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger

	buffer *audio.Buffer
	state  atomic.Int32

	events   chan eventKind
	results  chan Outcome
	outcomes chan Outcome

	mu        sync.Mutex
	sessionID string
	startedAt time.Time
	cancel    context.CancelFunc
}

// NewCoordinator builds an idle coordinator.
func NewCoordinator(cfg Config, deps Deps, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With().Str("component", "session").Logger(),
		buffer:   audio.NewBuffer(cfg.SampleRate, int(cfg.MaxSession.Seconds())),
		events:   make(chan eventKind, 8),
		results:  make(chan Outcome, 1),
		outcomes: make(chan Outcome, 16),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Outcomes exposes terminal session results. Slow readers lose outcomes
// rather than stalling the state machine.
func (c *Coordinator) Outcomes() <-chan Outcome {
	return c.outcomes
}

// Press requests the start of a recording session. Redundant presses and
// presses while a session is still processing are ignored.
func (c *Coordinator) Press() { c.enqueue(evPress) }

// Release seals the current recording and starts processing. Releases
// while idle are ignored.
func (c *Coordinator) Release() { c.enqueue(evRelease) }

// Toggle presses when idle and releases when recording.
func (c *Coordinator) Toggle() { c.enqueue(evToggle) }

func (c *Coordinator) enqueue(ev eventKind) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn().Msg("hotkey event dropped, queue full")
	}
}

// PushSamples feeds captured microphone samples into the active session.
// Samples arriving outside a recording session are discarded, so the
// capture device can run for the daemon's lifetime.
func (c *Coordinator) PushSamples(samples []int16) {
	if c.State() != StateRecording {
		return
	}
	// The buffer rejects and remembers the overrun; Stop reports it when
	// the session seals, so this fires at most once per session.
	if err := c.buffer.Push(samples); errors.Is(err, audio.ErrBufferOverrun) {
		observability.RecordBufferOverrun()
		c.logger.Warn().
			Dur("max_session", c.cfg.MaxSession).
			Msg("recording exceeded max session duration, discarding")
	}
}

// Run drives the state machine until ctx is cancelled. An in-flight
// session is aborted before returning.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info().
		Int("sample_rate", c.cfg.SampleRate).
		Dur("max_session", c.cfg.MaxSession).
		Msg("session coordinator started")

	for {
		select {
		case <-ctx.Done():
			c.abortActive()
			return ctx.Err()
		case ev := <-c.events:
			c.handleEvent(ctx, ev)
		case out := <-c.results:
			c.finish(out)
		}
	}
}

func (c *Coordinator) handleEvent(ctx context.Context, ev eventKind) {
	state := c.State()
	if ev == evToggle {
		switch state {
		case StateIdle:
			ev = evPress
		case StateRecording:
			ev = evRelease
		default:
			c.logger.Debug().Stringer("state", state).Msg("toggle ignored while processing")
			return
		}
	}

	switch ev {
	case evPress:
		if state != StateIdle {
			c.logger.Debug().Stringer("state", state).Msg("press ignored")
			return
		}
		c.startRecording()
	case evRelease:
		if state != StateRecording {
			c.logger.Debug().Stringer("state", state).Msg("release ignored")
			return
		}
		c.stopRecording(ctx)
	}
}

func (c *Coordinator) startRecording() {
	c.mu.Lock()
	c.sessionID = uuid.NewString()
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.buffer.Start()
	c.state.Store(int32(StateRecording))
	observability.SetSessionActive(true)

	if c.deps.Notifier != nil {
		c.deps.Notifier.RecordingStarted()
	}
	c.logger.Info().Str("session_id", c.sessionID).Msg("recording started")
}

func (c *Coordinator) stopRecording(ctx context.Context) {
	c.state.Store(int32(StateProcessing))
	samples, overrun := c.buffer.Stop()

	c.mu.Lock()
	id := c.sessionID
	recorded := time.Since(c.startedAt)
	sessCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	observability.ObserveRecordingDuration(recorded.Seconds())
	if c.deps.Notifier != nil {
		c.deps.Notifier.RecordingStopped()
	}
	c.logger.Info().
		Str("session_id", id).
		Dur("recorded", recorded).
		Int("samples", len(samples)).
		Msg("recording stopped")

	go c.process(sessCtx, id, samples, overrun)
}

// Abort cancels the in-flight session, if any. Text is never injected
// after an abort.
func (c *Coordinator) Abort() {
	c.abortActive()
}

func (c *Coordinator) abortActive() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Coordinator) process(ctx context.Context, id string, samples []int16, overrun bool) {
	start := time.Now()
	out := c.runPipeline(ctx, id, samples, overrun, start)

	select {
	case c.results <- out:
	case <-time.After(5 * time.Second):
		// Run loop gone; nothing left to hand the result to.
		c.logger.Error().Str("session_id", id).Msg("session result unclaimed")
	}
}

func (c *Coordinator) runPipeline(ctx context.Context, id string, samples []int16, overrun bool, start time.Time) Outcome {
	if overrun {
		return Outcome{SessionID: id, Kind: OutcomeFailed, Stage: StageCapture, Err: audio.ErrBufferOverrun}
	}
	if len(samples) == 0 {
		return Outcome{SessionID: id, Kind: OutcomeNoSpeech, Stage: StageCapture}
	}

	iv := c.deps.Detector.Detect(samples)
	if iv.Empty() {
		return Outcome{SessionID: id, Kind: OutcomeNoSpeech, Stage: StageTrim}
	}
	speech := samples[iv.Start:iv.End]
	if c.speechDuration(len(speech)) < c.cfg.MinSpeech {
		return Outcome{SessionID: id, Kind: OutcomeNoSpeech, Stage: StageTrim}
	}

	modelStart := time.Now()
	raw, err := c.deps.Transcriber.Transcribe(ctx, speech, c.cfg.SampleRate, c.cfg.InitialPrompt)
	observability.ObserveTranscriptionLatency(time.Since(modelStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{SessionID: id, Kind: OutcomeAborted, Stage: StageModel, Err: ctx.Err()}
		}
		return Outcome{SessionID: id, Kind: OutcomeFailed, Stage: StageModel, Err: err}
	}

	text := c.deps.Formatter.Format(raw)
	if text == "" {
		return Outcome{SessionID: id, Kind: OutcomeNoSpeech, Stage: StageFormat, RawText: raw}
	}

	if ctx.Err() != nil {
		return Outcome{SessionID: id, Kind: OutcomeAborted, Stage: StageInjection, RawText: raw, Err: ctx.Err()}
	}

	injectStart := time.Now()
	err = c.deps.Injector.Inject(ctx, text)
	observability.ObserveInjectionLatency(time.Since(injectStart).Seconds())
	if err != nil {
		kind := OutcomeFailed
		if ctx.Err() != nil {
			kind = OutcomeAborted
		}
		return Outcome{SessionID: id, Kind: kind, Stage: StageInjection, RawText: raw, Text: text, Err: err}
	}
	observability.RecordInjectedChars(len(text))

	if c.deps.History != nil {
		if err := c.deps.History.Append(raw, text, time.Since(start)); err != nil {
			c.logger.Warn().Err(err).Msg("history append failed")
		}
	}
	return Outcome{SessionID: id, Kind: OutcomeSuccess, RawText: raw, Text: text}
}

func (c *Coordinator) speechDuration(numSamples int) time.Duration {
	return time.Duration(numSamples) * time.Second / time.Duration(c.cfg.SampleRate)
}

func (c *Coordinator) finish(out Outcome) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.state.Store(int32(StateIdle))
	observability.SetSessionActive(false)
	observability.RecordSessionOutcome(out.Kind.String())

	evt := c.logger.Info()
	switch out.Kind {
	case OutcomeFailed:
		observability.RecordError(string(out.Stage), "session")
		evt = c.logger.Error().Err(out.Err).Str("stage", string(out.Stage))
		if c.deps.Notifier != nil {
			c.deps.Notifier.Failure()
		}
	case OutcomeAborted:
		evt = c.logger.Warn().Str("stage", string(out.Stage))
	case OutcomeNoSpeech:
		evt = c.logger.Debug().Str("stage", string(out.Stage))
	}
	evt.Str("session_id", out.SessionID).
		Stringer("outcome", out.Kind).
		Int("chars", len(out.Text)).
		Msg("session finished")

	select {
	case c.outcomes <- out:
	default:
	}
}
