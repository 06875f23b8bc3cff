package audio

import "math"

var ulawTable [256]int16
var alawTable [256]int16

func init() {
	for i := range 256 {
		ulawTable[i] = decodeUlawSample(byte(i))
		alawTable[i] = decodeAlawSample(byte(i))
	}
}

func decodeUlawSample(b byte) int16 {
	b = ^b
	sign := int16(1)
	if b&0x80 != 0 {
		sign = -1
		b &= 0x7F
	}
	exponent := int16((b >> 4) & 0x07)
	mantissa := int16(b & 0x0F)
	sample := (mantissa<<3 + 0x84) << exponent
	sample -= 0x84
	return sign * sample
}

func decodeAlawSample(b byte) int16 {
	b ^= 0x55
	sign := int16(1)
	if b&0x80 == 0 {
		sign = -1
	}
	b &= 0x7F
	exponent := int16((b >> 4) & 0x07)
	mantissa := int16(b & 0x0F)
	if exponent == 0 {
		return sign * (mantissa<<4 + 8)
	}
	return sign * ((mantissa<<4 + 0x108) << (exponent - 1))
}

func encodeUlawSample(s int16) byte {
	sign := byte(0)
	v := int(s)
	if v < 0 {
		sign = 0x80
		v = -v
	}
	if v > 32635 {
		v = 32635
	}
	v += 0x84
	exponent := byte(7)
	for mask := 0x4000; exponent > 0 && v&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte(v>>(exponent+3)) & 0x0F
	return ^(sign | exponent<<4 | mantissa)
}

func encodeAlawSample(s int16) byte {
	sign := byte(0x80)
	v := int(s)
	if v < 0 {
		sign = 0
		v = -v
	}
	if v > 32635 {
		v = 32635
	}
	var compressed byte
	if v >= 256 {
		exponent := byte(7)
		for mask := 0x4000; exponent > 1 && v&mask == 0; mask >>= 1 {
			exponent--
		}
		mantissa := byte(v>>(exponent+3)) & 0x0F
		compressed = exponent<<4 | mantissa
	} else {
		compressed = byte(v >> 4)
	}
	return (compressed | sign) ^ 0x55
}

func decodeG711Ulaw(data []byte) []float32 {
	samples := make([]float32, len(data))
	for i, b := range data {
		samples[i] = float32(ulawTable[b]) / math.MaxInt16
	}
	return samples
}

func decodeG711Alaw(data []byte) []float32 {
	samples := make([]float32, len(data))
	for i, b := range data {
		samples[i] = float32(alawTable[b]) / math.MaxInt16
	}
	return samples
}

func encodeG711Ulaw(samples []float32) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		clamped := max(-1.0, min(1.0, s))
		out[i] = encodeUlawSample(int16(clamped * math.MaxInt16))
	}
	return out
}

func encodeG711Alaw(samples []float32) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		clamped := max(-1.0, min(1.0, s))
		out[i] = encodeAlawSample(int16(clamped * math.MaxInt16))
	}
	return out
}
