package session

import "fmt"

// State is the dictation lifecycle state. Transitions are driven by hotkey
// events and pipeline completion; anything else is rejected.
type State int32

const (
	// StateIdle means no session is active and a press may start one.
	StateIdle State = iota

	// StateRecording means the hotkey is held and microphone samples are
	// being accumulated.
	StateRecording

	// StateProcessing means the key was released and the captured audio is
	// being trimmed, transcribed, formatted, and injected.
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// OutcomeKind classifies how a session ended.
type OutcomeKind int

const (
	// OutcomeSuccess means formatted text was injected.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeNoSpeech means the utterance contained nothing usable: no
	// voiced audio, too short, an empty transcript, or pure filler.
	OutcomeNoSpeech

	// OutcomeFailed means a pipeline stage returned an error.
	OutcomeFailed

	// OutcomeAborted means the session was cancelled before injection.
	OutcomeAborted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoSpeech:
		return "no_speech"
	case OutcomeFailed:
		return "failed"
	case OutcomeAborted:
		return "aborted"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Stage names the pipeline stage an outcome refers to, populated for
// failures.
type Stage string

const (
	StageCapture   Stage = "capture"
	StageTrim      Stage = "trim"
	StageModel     Stage = "model"
	StageFormat    Stage = "format"
	StageInjection Stage = "injection"
)

// Outcome is the terminal result of one push-to-talk session.
type Outcome struct {
	SessionID string
	Kind      OutcomeKind
	Stage     Stage
	RawText   string
	Text      string
	Err       error
}
