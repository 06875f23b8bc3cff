package audio

import (
	"fmt"
	"strings"
)

// Encoding identifies the telephony-side audio sample format.
type Encoding string

const (
	EncodingPCM16    Encoding = "pcm16"
	EncodingG711Ulaw Encoding = "g711_ulaw"
	EncodingG711Alaw Encoding = "g711_alaw"
)

// ParseEncoding maps a wire-format encoding name onto an Encoding. The
// telephony provider announces plain PCM as "PCM" in its metadata record;
// G.711 variants appear under their RTP payload names.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "pcm", "pcm16":
		return EncodingPCM16, nil
	case "pcmu", "ulaw", "mulaw", "g711_ulaw":
		return EncodingG711Ulaw, nil
	case "pcma", "alaw", "g711_alaw":
		return EncodingG711Alaw, nil
	}
	return "", fmt.Errorf("unsupported audio encoding: %s", name)
}

// codecEntry holds an encoding's decode/encode pair and its fixed sample
// rate. A rate of 0 means the caller-negotiated rate applies (PCM).
type codecEntry struct {
	decode func([]byte) []float32
	encode func([]float32) []byte
	rate   int
}

var codecs = map[Encoding]codecEntry{
	EncodingPCM16:    {decode: DecodePCM, encode: EncodePCM, rate: 0},
	EncodingG711Ulaw: {decode: decodeG711Ulaw, encode: encodeG711Ulaw, rate: 8000},
	EncodingG711Alaw: {decode: decodeG711Alaw, encode: encodeG711Alaw, rate: 8000},
}

// Transcoder converts audio frames between the telephony side's encoding and
// sample rate and the backend's 16-bit PCM at its own rate.
type Transcoder struct {
	encoding      Encoding
	telephonyRate int
	backendRate   int
	codec         codecEntry
}

// NewTranscoder builds a transcoder for the given telephony encoding and
// rates. Encodings with a fixed rate (G.711) override telephonyRate.
func NewTranscoder(encoding Encoding, telephonyRate, backendRate int) (*Transcoder, error) {
	c, ok := codecs[encoding]
	if !ok {
		return nil, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
	if c.rate != 0 {
		telephonyRate = c.rate
	}
	if telephonyRate <= 0 || backendRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: telephony=%d backend=%d", telephonyRate, backendRate)
	}
	return &Transcoder{
		encoding:      encoding,
		telephonyRate: telephonyRate,
		backendRate:   backendRate,
		codec:         c,
	}, nil
}

// Encoding returns the telephony-side encoding.
func (t *Transcoder) Encoding() Encoding { return t.encoding }

// TelephonyRate returns the effective telephony-side sample rate.
func (t *Transcoder) TelephonyRate() int { return t.telephonyRate }

// BackendRate returns the backend-side sample rate.
func (t *Transcoder) BackendRate() int { return t.backendRate }

// ToBackend converts one telephony media frame into PCM16 bytes at the
// backend rate.
func (t *Transcoder) ToBackend(frame []byte) []byte {
	samples := t.codec.decode(frame)
	samples = Resample(samples, t.telephonyRate, t.backendRate)
	return EncodePCM(samples)
}

// ToTelephony converts backend PCM16 bytes into one telephony media frame at
// the telephony rate and encoding.
func (t *Transcoder) ToTelephony(pcm []byte) []byte {
	samples := DecodePCM(pcm)
	samples = Resample(samples, t.backendRate, t.telephonyRate)
	return t.codec.encode(samples)
}
