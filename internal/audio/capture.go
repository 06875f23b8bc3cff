package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// SamplesToWAV encodes float32 PCM samples as a mono 16-bit WAV byte slice.
func SamplesToWAV(samples []float32, sampleRate int) []byte {
	dataLen := len(samples) * 2
	totalLen := 44 + dataLen

	buf := make([]byte, totalLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(totalLen-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                   // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i, s := range samples {
		clamped := max(-1.0, min(1.0, s))
		val := int16(clamped * math.MaxInt16)
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(val))
	}

	return buf
}

// Recorder accumulates per-direction audio for one call and writes each
// direction out as a WAV file on Close. Diagnostic tooling; callers treat
// every method as best-effort.
type Recorder struct {
	mu     sync.Mutex
	dir    string
	callID string
	tracks map[string][]float32
	rates  map[string]int
}

// NewRecorder creates a recorder writing into dir, named after callID.
func NewRecorder(dir, callID string) *Recorder {
	return &Recorder{
		dir:    dir,
		callID: callID,
		tracks: make(map[string][]float32),
		rates:  make(map[string]int),
	}
}

// Append adds samples at rate to the named direction track. The first
// append fixes the track's rate.
func (r *Recorder) Append(direction string, samples []float32, rate int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rates[direction]; !ok {
		r.rates[direction] = rate
	}
	r.tracks[direction] = append(r.tracks[direction], samples...)
}

// Close writes one WAV file per recorded direction. Empty tracks are
// skipped.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for direction, samples := range r.tracks {
		if len(samples) == 0 {
			continue
		}
		name := fmt.Sprintf("%s_%s.wav", r.callID, direction)
		path := filepath.Join(r.dir, name)
		if err := os.WriteFile(path, SamplesToWAV(samples, r.rates[direction]), 0o644); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write capture %s: %w", name, err)
		}
	}
	r.tracks = make(map[string][]float32)
	return firstErr
}
