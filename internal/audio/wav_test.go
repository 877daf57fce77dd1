package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	samples := []int16{100, -100, 200, -200}
	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV() failed: %v", err)
	}

	if len(data) != 44+len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("Missing RIFF/WAVE magic")
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	if sampleRate != 16000 {
		t.Errorf("Expected sample rate 16000 in header, got %d", sampleRate)
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != 1 {
		t.Errorf("Expected 1 channel, got %d", channels)
	}

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if dataSize != uint32(len(samples)*2) {
		t.Errorf("Expected data size %d, got %d", len(samples)*2, dataSize)
	}

	// First sample round-trips
	first := int16(binary.LittleEndian.Uint16(data[44:46]))
	if first != 100 {
		t.Errorf("Expected first sample 100, got %d", first)
	}
}

func TestEncodeWAV_Empty(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}
}

func TestEncodeWAV_BadRate(t *testing.T) {
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}
