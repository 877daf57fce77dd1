// Package sound plays short tone cues for session edges so the user knows
// when the microphone is hot without looking at a screen.
package sound

import (
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/generators"
	"github.com/faiface/beep/speaker"
	"github.com/rs/zerolog"
)

// outputRate is the playback rate, separate from the 16kHz capture rate.
const outputRate = beep.SampleRate(44100)

type tone struct {
	freq     float64
	duration time.Duration
	volume   float64
}

var cues = map[string][]tone{
	"start": {{600, 80 * time.Millisecond, 0.3}},                                                            // short low boop
	"stop":  {{800, 60 * time.Millisecond, 0.25}, {1200, 80 * time.Millisecond, 0.25}},                      // rising two-tone
	"error": {{300, 120 * time.Millisecond, 0.3}, {200, 150 * time.Millisecond, 0.3}},                       // descending
	"ready": {{800, 50 * time.Millisecond, 0.15}, {1000, 50 * time.Millisecond, 0.15}, {1200, 60 * time.Millisecond, 0.15}}, // cheerful triple
}

// Player renders cues through the system speaker. The speaker is
// initialized lazily on first play; if no output device exists the player
// degrades to silence.
type Player struct {
	enabled bool
	logger  zerolog.Logger

	initOnce sync.Once
	initErr  error
}

// NewPlayer creates a player. A disabled player swallows every cue.
func NewPlayer(enabled bool, logger zerolog.Logger) *Player {
	return &Player{
		enabled: enabled,
		logger:  logger.With().Str("component", "sound").Logger(),
	}
}

// RecordingStarted plays the microphone-hot cue.
func (p *Player) RecordingStarted() { p.play("start") }

// RecordingStopped plays the processing cue.
func (p *Player) RecordingStopped() { p.play("stop") }

// Failure plays the error cue.
func (p *Player) Failure() { p.play("error") }

// Ready plays the daemon-up cue.
func (p *Player) Ready() { p.play("ready") }

func (p *Player) play(name string) {
	if !p.enabled {
		return
	}
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
		if p.initErr != nil {
			p.logger.Warn().Err(p.initErr).Msg("audio output unavailable, sound cues disabled")
		}
	})
	if p.initErr != nil {
		return
	}

	tones, ok := cues[name]
	if !ok {
		p.logger.Warn().Str("cue", name).Msg("unknown sound cue")
		return
	}

	var parts []beep.Streamer
	for i, t := range tones {
		sine, err := generators.SineTone(outputRate, t.freq)
		if err != nil {
			p.logger.Debug().Err(err).Msg("tone generation failed")
			return
		}
		parts = append(parts, &effects.Volume{
			Streamer: beep.Take(outputRate.N(t.duration), sine),
			Base:     2,
			Volume:   math.Log2(t.volume),
		})
		if i < len(tones)-1 {
			parts = append(parts, beep.Silence(outputRate.N(20*time.Millisecond)))
		}
	}

	speaker.Play(beep.Seq(parts...))
}
