package audio

import (
	"errors"
	"sync"
)

// ErrBufferOverrun is returned by Push once the accumulated audio would
// exceed the configured maximum session duration. The recording is aborted
// rather than silently truncated; the user is expected to speak in shorter
// phrases.
var ErrBufferOverrun = errors.New("recording exceeded maximum session duration")

// Buffer accumulates raw mono PCM samples for one dictation session.
//
// The capture callback pushes sample chunks while the session is recording;
// Stop seals the buffer and hands exclusive ownership of the sample slice to
// the caller. After sealing, further pushes are rejected, so the producer and
// the consumer never observe the same samples concurrently.
type Buffer struct {
	mu         sync.Mutex
	samples    []int16
	maxSamples int
	recording  bool
	overrun    bool
}

// NewBuffer creates a buffer that accepts at most maxSeconds of audio at the
// given sample rate.
func NewBuffer(sampleRate, maxSeconds int) *Buffer {
	max := sampleRate * maxSeconds
	return &Buffer{
		samples:    make([]int16, 0, max),
		maxSamples: max,
	}
}

// Start resets the buffer and begins accepting samples.
func (b *Buffer) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = b.samples[:0]
	b.recording = true
	b.overrun = false
}

// Push appends a chunk of samples. It returns ErrBufferOverrun if accepting
// the chunk would exceed the maximum session duration; the chunk is dropped
// and the buffer stops accepting further samples for this session.
// Push after Stop (or before Start) is a silent no-op so a late capture
// callback cannot corrupt a sealed buffer.
func (b *Buffer) Push(chunk []int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.recording {
		return nil
	}
	if len(b.samples)+len(chunk) > b.maxSamples {
		b.recording = false
		b.overrun = true
		return ErrBufferOverrun
	}

	b.samples = append(b.samples, chunk...)
	return nil
}

// Stop seals the buffer and returns the captured samples along with whether
// the recording overran the session cap. The overrun flag is decided under
// the same lock that gates Push, so a capture callback racing the seal cannot
// hand an overrun buffer onward as a normal session. The returned slice is
// owned exclusively by the caller; the buffer will not touch it again
// (the next Start allocates fresh backing storage).
func (b *Buffer) Stop() ([]int16, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recording = false
	out := b.samples
	b.samples = make([]int16, 0, b.maxSamples)
	return out, b.overrun
}

// Len returns the number of samples accumulated so far.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Recording reports whether the buffer is currently accepting samples.
func (b *Buffer) Recording() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recording
}
