package vad

import "github.com/voxterm/voxterm/internal/audio"

// referenceRMS is the RMS energy (in 16-bit PCM units) mapped to probability
// 1.0. Normal speech into a desktop microphone lands well above the 0.5
// threshold at this scale; room noise stays below it.
const referenceRMS = 4000.0

// EnergyScorer is a deterministic RMS-energy speech scorer. It is the
// zero-dependency default; any model-backed Scorer can replace it.
type EnergyScorer struct {
	// Reference is the RMS level treated as certain speech. Zero means the
	// package default.
	Reference float64
}

// Score maps the frame's RMS energy linearly onto [0, 1].
func (e EnergyScorer) Score(frame []int16) float64 {
	ref := e.Reference
	if ref <= 0 {
		ref = referenceRMS
	}

	p := audio.CalculateRMS(frame) / ref
	if p > 1 {
		p = 1
	}
	return p
}
