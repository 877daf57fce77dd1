package audio

import (
	"errors"
	"sync"
	"testing"
)

func TestBuffer_PushAndStop(t *testing.T) {
	buf := NewBuffer(16000, 60)
	buf.Start()

	chunk := make([]int16, 160)
	for i := range chunk {
		chunk[i] = int16(i)
	}

	if err := buf.Push(chunk); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}
	if err := buf.Push(chunk); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	samples, overrun := buf.Stop()
	if overrun {
		t.Error("Expected no overrun")
	}
	if len(samples) != 320 {
		t.Errorf("Expected 320 samples, got %d", len(samples))
	}
	if samples[0] != 0 || samples[159] != 159 || samples[160] != 0 {
		t.Error("Samples not appended in order")
	}
}

func TestBuffer_Overrun(t *testing.T) {
	// 1 second cap at 16kHz
	buf := NewBuffer(16000, 1)
	buf.Start()

	chunk := make([]int16, 8000) // 0.5s
	if err := buf.Push(chunk); err != nil {
		t.Fatalf("First push failed: %v", err)
	}
	if err := buf.Push(chunk); err != nil {
		t.Fatalf("Second push failed: %v", err)
	}

	// Third chunk would exceed the cap
	err := buf.Push(chunk)
	if !errors.Is(err, ErrBufferOverrun) {
		t.Fatalf("Expected ErrBufferOverrun, got %v", err)
	}

	// The overrunning chunk must not be partially applied
	if buf.Len() != 16000 {
		t.Errorf("Expected 16000 samples after overrun, got %d", buf.Len())
	}

	// Buffer stops accepting after overrun
	if err := buf.Push(chunk); err != nil {
		t.Errorf("Push after overrun should be a no-op, got %v", err)
	}
	if buf.Len() != 16000 {
		t.Errorf("Expected sample count unchanged after overrun, got %d", buf.Len())
	}

	// Stop reports the overrun under the same lock that rejected the push,
	// so the caller never mistakes a capped buffer for a normal session.
	if _, overrun := buf.Stop(); !overrun {
		t.Error("Expected Stop to report the overrun")
	}

	// The next session starts clean.
	buf.Start()
	if _, overrun := buf.Stop(); overrun {
		t.Error("Expected overrun flag cleared by Start")
	}
}

func TestBuffer_PushBeforeStartIgnored(t *testing.T) {
	buf := NewBuffer(16000, 60)

	if err := buf.Push(make([]int16, 100)); err != nil {
		t.Fatalf("Push before Start should be a no-op, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected 0 samples, got %d", buf.Len())
	}
}

func TestBuffer_PushAfterStopIgnored(t *testing.T) {
	buf := NewBuffer(16000, 60)
	buf.Start()
	buf.Push(make([]int16, 100))
	sealed, _ := buf.Stop()

	if err := buf.Push(make([]int16, 100)); err != nil {
		t.Fatalf("Push after Stop should be a no-op, got %v", err)
	}
	if len(sealed) != 100 {
		t.Errorf("Sealed slice mutated: expected 100 samples, got %d", len(sealed))
	}
	if buf.Len() != 0 {
		t.Errorf("Expected buffer empty after seal, got %d samples", buf.Len())
	}
}

func TestBuffer_StartResets(t *testing.T) {
	buf := NewBuffer(16000, 60)
	buf.Start()
	buf.Push(make([]int16, 100))
	buf.Stop()

	buf.Start()
	if buf.Len() != 0 {
		t.Errorf("Expected empty buffer after restart, got %d samples", buf.Len())
	}
	if !buf.Recording() {
		t.Error("Expected buffer to be recording after Start")
	}
}

func TestBuffer_ConcurrentPush(t *testing.T) {
	buf := NewBuffer(16000, 60)
	buf.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf.Push(make([]int16, 160))
			}
		}()
	}
	wg.Wait()

	if got := buf.Len(); got != 8*100*160 {
		t.Errorf("Expected %d samples, got %d", 8*100*160, got)
	}
}

func TestCalculateRMS(t *testing.T) {
	samples := []int16{1000, -1000, 2000, -2000}
	rms := CalculateRMS(samples)

	// sqrt((1000^2 + 1000^2 + 2000^2 + 2000^2) / 4)
	expected := 1581.14
	if rms < expected-1 || rms > expected+1 {
		t.Errorf("Expected RMS around %.2f, got %.2f", expected, rms)
	}

	if CalculateRMS(nil) != 0 {
		t.Error("Expected RMS of empty input to be 0")
	}
}

func TestSampleByteRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345}
	got := BytesToSamples(SamplesToBytes(samples))
	if len(got) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, samples[i], got[i])
		}
	}
}

func TestSamplesToFloat32(t *testing.T) {
	out := SamplesToFloat32([]int16{0, 16384, -32768})
	if out[0] != 0 {
		t.Errorf("Expected 0, got %f", out[0])
	}
	if out[1] != 0.5 {
		t.Errorf("Expected 0.5, got %f", out[1])
	}
	if out[2] != -1.0 {
		t.Errorf("Expected -1.0, got %f", out[2])
	}
}
