package audio

import "math"

// CalculateRMS calculates the root-mean-square energy of audio samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// BytesToSamples converts little-endian 16-bit PCM bytes to int16 samples.
// A trailing odd byte is ignored.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to little-endian 16-bit PCM bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(uint16(s) >> 8)
	}
	return data
}

// SamplesToFloat32 converts int16 samples to float32 in [-1, 1), the format
// the whisper.cpp bindings expect.
func SamplesToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}
