package audio

import "math"

// resampleTaps is the FIR kernel length used for anti-alias filtering.
const resampleTaps = 31

// Resample converts samples from srcRate to dstRate using linear
// interpolation with a windowed-sinc anti-aliasing filter. Returns the input
// unchanged if the rates already match.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	cutoff := float64(min(srcRate, dstRate)) / 2.0

	// Downsampling: filter first so frequencies above the new Nyquist are
	// gone before interpolation.
	if srcRate > dstRate {
		samples = firLowPass(samples, cutoff, float64(srcRate))
	}

	ratio := float64(srcRate) / float64(dstRate)
	out := make([]float32, int(float64(len(samples))/ratio))
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx+1 >= len(samples) {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}

	// Upsampling: filter after interpolation to remove imaging artifacts.
	if dstRate > srcRate {
		out = firLowPass(out, cutoff, float64(dstRate))
	}

	return out
}

// firLowPass convolves samples with a Blackman-windowed sinc kernel. Kernel
// taps that fall outside the valid input range contribute nothing.
func firLowPass(samples []float32, cutoff, sampleRate float64) []float32 {
	kernel := blackmanSinc(cutoff/sampleRate, resampleTaps)
	half := resampleTaps / 2
	out := make([]float32, len(samples))

	for i := range samples {
		jStart := max(0, half-i)
		jEnd := min(resampleTaps, len(samples)-i+half)
		var sum float32
		for j := jStart; j < jEnd; j++ {
			sum += samples[i+j-half] * kernel[j]
		}
		out[i] = sum
	}

	return out
}

// blackmanSinc builds a sinc kernel at normalized cutoff fc, shaped by a
// Blackman window and normalized to unity gain at DC.
func blackmanSinc(fc float64, taps int) []float32 {
	half := taps / 2
	kernel := make([]float32, taps)

	var sum float64
	for i := range taps {
		n := float64(i - half)
		sinc := 1.0
		if n != 0 {
			x := 2.0 * math.Pi * fc * n
			sinc = math.Sin(x) / x
		}
		w := 0.42 - 0.5*math.Cos(2.0*math.Pi*float64(i)/float64(taps-1)) +
			0.08*math.Cos(4.0*math.Pi*float64(i)/float64(taps-1))
		val := sinc * w
		kernel[i] = float32(val)
		sum += val
	}

	scale := float32(1.0 / sum)
	for i := range kernel {
		kernel[i] *= scale
	}

	return kernel
}
