package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestSamplesToWAVHeader(t *testing.T) {
	data := SamplesToWAV([]float32{0, 0.5, -0.5}, 16000)
	if len(data) != 44+6 {
		t.Fatalf("wav length %d, want %d", len(data), 44+6)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Fatalf("sample rate %d, want 16000", rate)
	}
	if dataLen := binary.LittleEndian.Uint32(data[40:44]); dataLen != 6 {
		t.Fatalf("data chunk length %d, want 6", dataLen)
	}
}

func TestRecorderWritesPerDirection(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, "call-1")
	r.Append("inbound", []float32{0.1, 0.2}, 16000)
	r.Append("outbound", []float32{0.3}, 24000)
	r.Append("inbound", []float32{0.4}, 16000)

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	inbound, err := os.ReadFile(filepath.Join(dir, "call-1_inbound.wav"))
	if err != nil {
		t.Fatalf("inbound capture: %v", err)
	}
	if got := binary.LittleEndian.Uint32(inbound[40:44]); got != 6 {
		t.Fatalf("inbound data length %d, want 6", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "call-1_outbound.wav")); err != nil {
		t.Fatalf("outbound capture: %v", err)
	}
}
