package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeader is the 44-byte canonical RIFF/WAVE header for PCM audio.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeWAV wraps mono 16-bit PCM samples in a WAV container, suitable for
// multipart upload to a whisper.cpp server.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	const (
		numChannels   = uint16(1)
		bitsPerSample = uint16(16)
	)
	dataSize := uint32(len(samples) * 2)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}
