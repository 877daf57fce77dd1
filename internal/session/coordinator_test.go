package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxterm/voxterm/internal/audio"
	"github.com/voxterm/voxterm/internal/vad"
)

type fullSpanDetector struct{}

func (fullSpanDetector) Detect(samples []int16) vad.Interval {
	return vad.Interval{Start: 0, End: len(samples)}
}

type emptyDetector struct{}

func (emptyDetector) Detect([]int16) vad.Interval { return vad.Interval{} }

type fakeTranscriber struct {
	mu      sync.Mutex
	calls   int
	samples []int16
	text    string
	err     error
	block   chan struct{} // when non-nil, Transcribe waits for close or ctx
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, samples []int16, sampleRate int, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.samples = samples
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type passthroughFormatter struct{}

func (passthroughFormatter) Format(raw string) string { return raw }

type emptyFormatter struct{}

func (emptyFormatter) Format(string) string { return "" }

type fakeInjector struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeInjector) Inject(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeInjector) injected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeHistory) Append(raw, formatted string, took time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, formatted)
	return nil
}

func testConfig() Config {
	return Config{
		SampleRate: 16000,
		MaxSession: time.Second,
		MinSpeech:  10 * time.Millisecond,
	}
}

func startCoordinator(t *testing.T, cfg Config, deps Deps) *Coordinator {
	t.Helper()
	if deps.Detector == nil {
		deps.Detector = fullSpanDetector{}
	}
	if deps.Formatter == nil {
		deps.Formatter = passthroughFormatter{}
	}
	c := NewCoordinator(cfg, deps, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func waitState(t *testing.T, c *Coordinator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}

func waitOutcome(t *testing.T, c *Coordinator) Outcome {
	t.Helper()
	select {
	case out := <-c.Outcomes():
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

// speech returns n samples of loud signal.
func speech(n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = 8000
	}
	return samples
}

func TestCoordinator_SuccessFlow(t *testing.T) {
	tr := &fakeTranscriber{text: "git status"}
	inj := &fakeInjector{}
	hist := &fakeHistory{}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: inj, History: hist})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600))
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeSuccess {
		t.Fatalf("outcome = %v (%v), want success", out.Kind, out.Err)
	}
	if out.Text != "git status" {
		t.Errorf("text = %q", out.Text)
	}
	if got := inj.injected(); len(got) != 1 || got[0] != "git status" {
		t.Errorf("injected = %v", got)
	}
	if len(hist.entries) != 1 {
		t.Errorf("history entries = %d, want 1", len(hist.entries))
	}
	waitState(t, c, StateIdle)
}

func TestCoordinator_NoSpeechSkipsTranscriber(t *testing.T) {
	tr := &fakeTranscriber{text: "should not appear"}
	inj := &fakeInjector{}
	c := startCoordinator(t, testConfig(), Deps{Detector: emptyDetector{}, Transcriber: tr, Injector: inj})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600))
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeNoSpeech {
		t.Fatalf("outcome = %v, want no_speech", out.Kind)
	}
	if tr.callCount() != 0 {
		t.Error("transcriber must not run when no speech was detected")
	}
	if len(inj.injected()) != 0 {
		t.Error("nothing should be injected")
	}
}

func TestCoordinator_EmptyBufferIsNoSpeech(t *testing.T) {
	tr := &fakeTranscriber{}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: &fakeInjector{}})

	c.Press()
	waitState(t, c, StateRecording)
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeNoSpeech {
		t.Fatalf("outcome = %v, want no_speech", out.Kind)
	}
	if tr.callCount() != 0 {
		t.Error("transcriber must not run on an empty buffer")
	}
}

func TestCoordinator_ShortSpeechIsNoSpeech(t *testing.T) {
	tr := &fakeTranscriber{}
	cfg := testConfig()
	cfg.MinSpeech = 500 * time.Millisecond
	c := startCoordinator(t, cfg, Deps{Transcriber: tr, Injector: &fakeInjector{}})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600)) // 100ms, well under the minimum
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeNoSpeech {
		t.Fatalf("outcome = %v, want no_speech", out.Kind)
	}
	if tr.callCount() != 0 {
		t.Error("transcriber must not run for too-short speech")
	}
}

func TestCoordinator_TranscriberFailure(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("model exploded")}
	inj := &fakeInjector{}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: inj})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600))
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeFailed || out.Stage != StageModel {
		t.Fatalf("outcome = %v/%v, want failed/model", out.Kind, out.Stage)
	}
	if len(inj.injected()) != 0 {
		t.Error("nothing should be injected after a model failure")
	}
	waitState(t, c, StateIdle)
}

func TestCoordinator_EmptyFormatIsNoSpeech(t *testing.T) {
	tr := &fakeTranscriber{text: "um uh"}
	inj := &fakeInjector{}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: inj, Formatter: emptyFormatter{}})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600))
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeNoSpeech || out.Stage != StageFormat {
		t.Fatalf("outcome = %v/%v, want no_speech/format", out.Kind, out.Stage)
	}
	if out.RawText != "um uh" {
		t.Errorf("raw text = %q", out.RawText)
	}
	if len(inj.injected()) != 0 {
		t.Error("nothing should be injected")
	}
}

func TestCoordinator_InjectionFailure(t *testing.T) {
	tr := &fakeTranscriber{text: "echo hi"}
	inj := &fakeInjector{err: errors.New("no display")}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: inj})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600))
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeFailed || out.Stage != StageInjection {
		t.Fatalf("outcome = %v/%v, want failed/injection", out.Kind, out.Stage)
	}
}

func TestCoordinator_BufferOverrun(t *testing.T) {
	tr := &fakeTranscriber{}
	cfg := testConfig() // 1s cap = 16000 samples
	c := startCoordinator(t, cfg, Deps{Transcriber: tr, Injector: &fakeInjector{}})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(16000))
	c.PushSamples(speech(1)) // tips over the cap
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeFailed || out.Stage != StageCapture {
		t.Fatalf("outcome = %v/%v, want failed/capture", out.Kind, out.Stage)
	}
	if !errors.Is(out.Err, audio.ErrBufferOverrun) {
		t.Errorf("err = %v, want ErrBufferOverrun", out.Err)
	}
	if tr.callCount() != 0 {
		t.Error("overrun recordings must not be transcribed")
	}
}

func TestCoordinator_PressWhileProcessingIgnored(t *testing.T) {
	block := make(chan struct{})
	tr := &fakeTranscriber{text: "slow", block: block}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: &fakeInjector{}})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600))
	c.Release()
	waitState(t, c, StateProcessing)

	// Single active session: a press mid-processing must not start another.
	c.Press()
	time.Sleep(20 * time.Millisecond)
	if c.State() != StateProcessing {
		t.Fatalf("state = %v, want processing", c.State())
	}

	close(block)
	out := waitOutcome(t, c)
	if out.Kind != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", out.Kind)
	}
	waitState(t, c, StateIdle)
}

func TestCoordinator_AbortDuringProcessing(t *testing.T) {
	block := make(chan struct{})
	tr := &fakeTranscriber{text: "never injected", block: block}
	inj := &fakeInjector{}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: inj})

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600))
	c.Release()
	waitState(t, c, StateProcessing)

	c.Abort()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeAborted {
		t.Fatalf("outcome = %v, want aborted", out.Kind)
	}
	if len(inj.injected()) != 0 {
		t.Error("text must never be injected after abort")
	}
	waitState(t, c, StateIdle)
}

func TestCoordinator_Toggle(t *testing.T) {
	tr := &fakeTranscriber{text: "toggled"}
	inj := &fakeInjector{}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: inj})

	c.Toggle()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(1600))
	c.Toggle()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeSuccess || out.Text != "toggled" {
		t.Fatalf("outcome = %v %q", out.Kind, out.Text)
	}
}

func TestCoordinator_SamplesOutsideRecordingDropped(t *testing.T) {
	tr := &fakeTranscriber{text: "x"}
	c := startCoordinator(t, testConfig(), Deps{Transcriber: tr, Injector: &fakeInjector{}})

	c.PushSamples(speech(1600)) // idle, must be ignored

	c.Press()
	waitState(t, c, StateRecording)
	c.PushSamples(speech(3200))
	c.Release()

	out := waitOutcome(t, c)
	if out.Kind != OutcomeSuccess {
		t.Fatalf("outcome = %v", out.Kind)
	}
	tr.mu.Lock()
	n := len(tr.samples)
	tr.mu.Unlock()
	if n != 3200 {
		t.Errorf("transcribed %d samples, want only the 3200 pushed while recording", n)
	}
}
