package voiceagent

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestPCM16BytesFor(t *testing.T) {
	tests := []struct {
		name       string
		d          time.Duration
		sampleRate int
		expected   int
	}{
		{
			name:       "50ms capture chunk at 48kHz",
			d:          50 * time.Millisecond,
			sampleRate: 48000,
			expected:   4800, // 2400 samples
		},
		{
			name:       "1s at 16kHz",
			d:          time.Second,
			sampleRate: 16000,
			expected:   32000,
		},
		{
			name:       "0ms",
			d:          0,
			sampleRate: 48000,
			expected:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PCM16BytesFor(tt.d, tt.sampleRate)
			if result != tt.expected {
				t.Errorf("expected %d bytes, got %d", tt.expected, result)
			}
		})
	}
}

func TestSamplesPerChunk(t *testing.T) {
	if got := DefaultConfig().Audio.SamplesPerChunk(); got != 2400 {
		t.Errorf("SamplesPerChunk() = %d, want 2400", got)
	}
}

func TestFrameDuration(t *testing.T) {
	frame := make([]byte, 3200)
	if got := FrameDuration(frame, 16000); got != 100*time.Millisecond {
		t.Errorf("FrameDuration() = %v, want 100ms", got)
	}
	if got := FrameDuration(frame, 0); got != 0 {
		t.Errorf("FrameDuration() at 0 Hz = %v", got)
	}
}

func TestInt16Conversion(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	b := Int16ToBytes(samples)
	if !bytes.Equal(b[2:4], []byte{0x01, 0x00}) || !bytes.Equal(b[4:6], []byte{0xff, 0xff}) {
		t.Errorf("not little-endian: % x", b)
	}
	back := BytesToInt16(append(b, 0x7f))
	if len(back) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(back), len(samples))
	}
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, back[i], samples[i])
		}
	}
}

func TestWAVFromPCM16Mono(t *testing.T) {
	// Create simple test PCM data (4 bytes = 2 samples)
	pcmData := []byte{0x00, 0x01, 0xFF, 0xFE} // Little-endian 16-bit samples
	sampleRate := 16000

	wav := WAVFromPCM16Mono(pcmData, sampleRate)

	// Check WAV file structure
	if len(wav) != 44+len(pcmData) {
		t.Errorf("expected WAV length %d, got %d", 44+len(pcmData), len(wav))
	}

	// Check RIFF header
	if !bytes.Equal(wav[0:4], []byte("RIFF")) {
		t.Error("missing RIFF header")
	}

	// Check WAVE format
	if !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Error("missing WAVE format")
	}

	// Check fmt chunk
	if !bytes.Equal(wav[12:16], []byte("fmt ")) {
		t.Error("missing fmt chunk")
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != uint32(sampleRate) {
		t.Errorf("sample rate field = %d", got)
	}

	// Check data chunk
	if !bytes.Equal(wav[36:40], []byte("data")) {
		t.Error("missing data chunk")
	}

	// Check that PCM data is correctly appended
	if !bytes.Equal(wav[44:], pcmData) {
		t.Error("PCM data not correctly appended")
	}
}

func TestWAVFromPCM16Mono_EmptyData(t *testing.T) {
	wav := WAVFromPCM16Mono([]byte{}, 16000)

	// Should still create valid WAV header
	if len(wav) != 44 {
		t.Errorf("expected WAV length 44 for empty PCM, got %d", len(wav))
	}
}

func BenchmarkWAVFromPCM16Mono(b *testing.B) {
	pcmData := make([]byte, 3200) // 100ms at 16kHz

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = WAVFromPCM16Mono(pcmData, 16000)
	}
}
