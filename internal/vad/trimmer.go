// Package vad locates the speech region inside a sealed utterance buffer.
//
// The trimmer runs a frame-wise speech/non-speech classification over
// fixed-size windows and applies hysteresis on both edges: a minimum run of
// consecutive speech frames before declaring speech start, and a minimum run
// of silence frames before declaring speech end. This avoids flutter on noisy
// input where single frames hop across the threshold.
package vad

import "fmt"

// Scorer assigns a speech probability in [0, 1] to a fixed-size frame of
// samples. Implementations must be deterministic: the trimmer's contract is
// that the same buffer with the same scorer and thresholds always produces
// the same interval.
type Scorer interface {
	Score(frame []int16) float64
}

// Interval identifies the detected speech region as sample offsets into the
// buffer it was computed from. An empty interval (Start == End) means no
// speech was detected; that is a valid outcome, not an error.
type Interval struct {
	Start int
	End   int
}

// Empty reports whether no speech was detected.
func (iv Interval) Empty() bool { return iv.Start == iv.End }

// Config holds the trimmer parameters.
type Config struct {
	SampleRate  int     // Hz; must match the buffer's rate
	FrameMs     int     // Analysis window size in milliseconds
	Threshold   float64 // Speech probability threshold
	StartFrames int     // Consecutive speech frames before speech start
	EndFrames   int     // Consecutive silence frames before speech end
}

// DefaultConfig returns the trimmer defaults: 30 ms frames, 0.5 threshold,
// 3 frames (90 ms) of speech to open, 10 frames (300 ms) of silence to close.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:  sampleRate,
		FrameMs:     30,
		Threshold:   0.5,
		StartFrames: 3,
		EndFrames:   10,
	}
}

// Trimmer detects the speech interval of a sealed sample buffer.
type Trimmer struct {
	scorer    Scorer
	frameSize int
	cfg       Config
}

// NewTrimmer creates a trimmer backed by the given scorer.
func NewTrimmer(scorer Scorer, cfg Config) (*Trimmer, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer must not be nil")
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.FrameMs <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d ms", cfg.FrameMs)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", cfg.Threshold)
	}
	if cfg.StartFrames < 1 || cfg.EndFrames < 1 {
		return nil, fmt.Errorf("hysteresis frame counts must be at least 1")
	}

	return &Trimmer{
		scorer:    scorer,
		frameSize: cfg.SampleRate * cfg.FrameMs / 1000,
		cfg:       cfg,
	}, nil
}

// Detect scans the buffer and returns the span from the first detected
// speech onset to the last detected speech offset. The trailing partial
// frame, if any, is not scored. The returned interval always satisfies
// 0 <= Start <= End <= len(samples).
func (t *Trimmer) Detect(samples []int16) Interval {
	if len(samples) < t.frameSize {
		return Interval{}
	}

	var (
		start       = -1 // first sample of the first qualifying speech run
		end         = 0  // one past the last sample of the last speech frame
		speechRun   = 0
		silenceRun  = 0
		inSpeech    = false
		runStartIdx = 0 // frame index where the current speech run began
	)

	frames := len(samples) / t.frameSize
	for i := 0; i < frames; i++ {
		frame := samples[i*t.frameSize : (i+1)*t.frameSize]
		speech := t.scorer.Score(frame) >= t.cfg.Threshold

		if speech {
			if speechRun == 0 {
				runStartIdx = i
			}
			speechRun++
			silenceRun = 0

			if !inSpeech && speechRun >= t.cfg.StartFrames {
				inSpeech = true
				if start < 0 {
					start = runStartIdx * t.frameSize
				}
			}
			if inSpeech {
				end = (i + 1) * t.frameSize
			}
		} else {
			speechRun = 0
			if inSpeech {
				silenceRun++
				if silenceRun >= t.cfg.EndFrames {
					inSpeech = false
					silenceRun = 0
				}
			}
		}
	}

	if start < 0 {
		return Interval{}
	}
	if end > len(samples) {
		end = len(samples)
	}
	return Interval{Start: start, End: end}
}

// FrameSize returns the analysis window size in samples.
func (t *Trimmer) FrameSize() int { return t.frameSize }
