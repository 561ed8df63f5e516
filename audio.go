package voiceagent

import (
	"encoding/binary"
	"time"
)

// BytesPerSample is the width of one 16-bit mono sample.
const BytesPerSample = 2

// SamplesFor returns the number of samples in d at sampleRate, rounded to nearest.
func SamplesFor(d time.Duration, sampleRate int) int {
	return int((int64(d)*int64(sampleRate) + int64(time.Second)/2) / int64(time.Second))
}

// PCM16BytesFor calculates the number of bytes needed for PCM16 audio of given duration.
func PCM16BytesFor(d time.Duration, sampleRate int) int {
	return SamplesFor(d, sampleRate) * BytesPerSample
}

// FrameDuration returns how long a PCM16 mono frame lasts at sampleRate.
func FrameDuration(frame []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(frame) / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// Int16ToBytes encodes samples as little-endian PCM16.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToInt16 decodes little-endian PCM16. A trailing odd byte is ignored.
func BytesToInt16(frame []byte) []int16 {
	out := make([]int16, len(frame)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
	}
	return out
}

// WAVFromPCM16Mono wraps raw PCM16 mono audio in a WAV header.
func WAVFromPCM16Mono(pcm []byte, sampleRate int) []byte {
	blockAlign := uint16(BytesPerSample)
	byteRate := uint32(sampleRate) * uint32(blockAlign)
	dataLen := uint32(len(pcm))
	riffLen := 36 + dataLen
	out := make([]byte, 44+len(pcm))

	// RIFF header
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], riffLen)
	copy(out[8:], []byte("WAVE"))

	// Format chunk
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:], 1)  // mono
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], byteRate)
	binary.LittleEndian.PutUint16(out[32:], blockAlign)
	binary.LittleEndian.PutUint16(out[34:], 16) // bits per sample

	// Data chunk
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], dataLen)
	copy(out[44:], pcm)
	return out
}
