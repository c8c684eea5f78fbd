package audio

import "math"

// RMSEnergy computes the root-mean-square energy of a block of 16-bit linear
// PCM samples. It mirrors the teacher's RMSVAD.calculateRMS but operates on
// decoded int16 samples rather than raw little-endian bytes, since the
// segmenter already receives decoded Frames.
func RMSEnergy(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Normalize scales samples so the peak magnitude reaches (but does not
// exceed) full scale, leaving silence untouched. This is the dispatcher's
// pre-processing step 1 (scale-normalize so peak <= full-scale, no
// clipping).
func Normalize(samples []int16) []int16 {
	if len(samples) == 0 {
		return samples
	}
	var peak int32
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 || peak == math.MaxInt16 {
		return samples
	}
	scale := float64(math.MaxInt16) / float64(peak)
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * scale
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// Denoise applies a short moving-average filter (window <= 5 samples) to
// smooth impulsive noise before encoding. A window of 1 is a no-op copy.
func Denoise(samples []int16, window int) []int16 {
	if window <= 1 || len(samples) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}
	if window > 5 {
		window = 5
	}
	out := make([]int16, len(samples))
	half := window / 2
	for i := range samples {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= len(samples) {
			hi = len(samples) - 1
		}
		var sum int64
		for j := lo; j <= hi; j++ {
			sum += int64(samples[j])
		}
		out[i] = int16(sum / int64(hi-lo+1))
	}
	return out
}
