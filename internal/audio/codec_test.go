package audio

import (
	"math"
	"testing"
)

func TestPCMRoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 0.99, -0.99, 1.5, -1.5}
	data := EncodePCM(samples)
	if len(data) != len(samples)*2 {
		t.Fatalf("encoded length %d, want %d", len(data), len(samples)*2)
	}

	got := DecodePCM(data)
	if len(got) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(samples))
	}
	for i, s := range samples {
		want := max(-1.0, min(1.0, s))
		if math.Abs(float64(got[i]-want)) > 1.0/math.MaxInt16*2 {
			t.Fatalf("sample %d: got %v, want ~%v", i, got[i], want)
		}
	}
}

func TestResampleIdentity(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	got := Resample(samples, 16000, 16000)
	if len(got) != len(samples) {
		t.Fatalf("identity resample changed length: %d", len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("identity resample changed sample %d", i)
		}
	}
}

func TestResampleLengths(t *testing.T) {
	tests := []struct {
		name                             string
		srcRate, dstRate, inLen, wantLen int
	}{
		{"upsample 16k to 24k", 16000, 24000, 320, 480},
		{"downsample 24k to 16k", 24000, 16000, 480, 320},
		{"upsample 8k to 24k", 8000, 24000, 80, 240},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := make([]float32, tc.inLen)
			for i := range in {
				in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(tc.srcRate)))
			}
			got := Resample(in, tc.srcRate, tc.dstRate)
			if len(got) != tc.wantLen {
				t.Fatalf("got %d samples, want %d", len(got), tc.wantLen)
			}
		})
	}
}

func TestResamplePreservesTone(t *testing.T) {
	// A 440 Hz tone resampled 16k -> 24k should keep its amplitude roughly
	// intact in the steady-state middle of the buffer.
	const srcRate, dstRate = 16000, 24000
	in := make([]float32, 1600)
	for i := range in {
		in[i] = float32(0.8 * math.Sin(2*math.Pi*440*float64(i)/srcRate))
	}
	out := Resample(in, srcRate, dstRate)

	var peak float32
	for _, s := range out[len(out)/4 : 3*len(out)/4] {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	if peak < 0.7 || peak > 0.9 {
		t.Fatalf("peak amplitude %v outside [0.7, 0.9]", peak)
	}
}

func TestG711RoundTrip(t *testing.T) {
	for _, enc := range []Encoding{EncodingG711Ulaw, EncodingG711Alaw} {
		t.Run(string(enc), func(t *testing.T) {
			c := codecs[enc]
			samples := []float32{0, 0.25, -0.25, 0.7, -0.7, 0.05, -0.05}
			decoded := c.decode(c.encode(samples))
			if len(decoded) != len(samples) {
				t.Fatalf("round trip length %d, want %d", len(decoded), len(samples))
			}
			for i, want := range samples {
				// G.711 is lossy; allow companding error.
				if math.Abs(float64(decoded[i]-want)) > 0.03 {
					t.Fatalf("sample %d: got %v, want ~%v", i, decoded[i], want)
				}
			}
		})
	}
}

func TestNewTranscoderRejectsUnknownEncoding(t *testing.T) {
	if _, err := NewTranscoder(Encoding("opus"), 16000, 24000); err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
}

func TestTranscoderG711ForcesRate(t *testing.T) {
	tr, err := NewTranscoder(EncodingG711Ulaw, 16000, 24000)
	if err != nil {
		t.Fatalf("NewTranscoder: %v", err)
	}
	if tr.TelephonyRate() != 8000 {
		t.Fatalf("telephony rate %d, want 8000", tr.TelephonyRate())
	}
}

func TestTranscoderBothDirections(t *testing.T) {
	tr, err := NewTranscoder(EncodingPCM16, 16000, 24000)
	if err != nil {
		t.Fatalf("NewTranscoder: %v", err)
	}

	in := make([]float32, 160) // 10ms at 16kHz
	for i := range in {
		in[i] = float32(0.5 * math.Sin(2*math.Pi*300*float64(i)/16000))
	}

	toBackend := tr.ToBackend(EncodePCM(in))
	if len(toBackend) != 240*2 {
		t.Fatalf("backend frame %d bytes, want %d", len(toBackend), 240*2)
	}

	toTelephony := tr.ToTelephony(toBackend)
	if len(toTelephony) != 160*2 {
		t.Fatalf("telephony frame %d bytes, want %d", len(toTelephony), 160*2)
	}
}

func TestParseEncoding(t *testing.T) {
	cases := []struct {
		name string
		want Encoding
	}{
		{"PCM", EncodingPCM16},
		{"pcm16", EncodingPCM16},
		{"PCMU", EncodingG711Ulaw},
		{"mulaw", EncodingG711Ulaw},
		{"g711_ulaw", EncodingG711Ulaw},
		{"PCMA", EncodingG711Alaw},
		{"alaw", EncodingG711Alaw},
	}
	for _, tc := range cases {
		got, err := ParseEncoding(tc.name)
		if err != nil {
			t.Fatalf("ParseEncoding(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("ParseEncoding(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}

	if _, err := ParseEncoding("opus"); err == nil {
		t.Fatal("ParseEncoding accepted an unsupported name")
	}
}
